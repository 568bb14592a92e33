// Package sse writes Server-Sent Events. It is the fallback live channel for
// clients that cannot hold a websocket open:
//
//	stream, err := sse.New(w, r)
//	if err != nil { ... }
//	stream.Send("order", update)
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnsupported is returned when no writer in the wrapper chain can flush.
var ErrUnsupported = errors.New("sse: streaming not supported")

// Stream is one open event stream.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
	r  *http.Request
}

// New sets the event-stream headers, lifts the server write deadline and
// flushes the headers so the client sees the stream open immediately.
func New(w http.ResponseWriter, r *http.Request) (*Stream, error) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		return nil, ErrUnsupported
	}
	_ = rc.SetWriteDeadline(time.Time{})
	return &Stream{w: w, rc: rc, r: r}, nil
}

// Send writes a named event. data is sent as-is when it is already
// json.RawMessage or []byte, otherwise JSON-encoded.
func (s *Stream) Send(event string, data any) error {
	var payload []byte
	switch v := data.(type) {
	case json.RawMessage:
		payload = v
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("sse: marshal: %w", err)
		}
		payload = b
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Comment writes a comment line; proxies treat it as traffic, clients ignore it.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Done is closed when the client goes away.
func (s *Stream) Done() <-chan struct{} { return s.r.Context().Done() }

// Pipe forwards every message from ch as an event until ch closes or the
// client disconnects, with a heartbeat comment on every quiet interval.
func (s *Stream) Pipe(event string, ch <-chan []byte, heartbeat time.Duration) error {
	t := time.NewTicker(heartbeat)
	defer t.Stop()
	for {
		select {
		case <-s.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.Send(event, msg); err != nil {
				return err
			}
		case <-t.C:
			if err := s.Comment("ping"); err != nil {
				return err
			}
		}
	}
}
