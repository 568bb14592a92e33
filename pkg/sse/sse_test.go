package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeForwardsUntilChannelCloses(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)

	s, err := New(rec, req)
	require.NoError(t, err)

	ch := make(chan []byte, 2)
	ch <- []byte(`{"status":"Processing"}`)
	ch <- []byte(`{"status":"Preparing"}`)
	close(ch)
	require.NoError(t, s.Pipe("order", ch, time.Hour))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"event: order\ndata: {\"status\":\"Processing\"}\n\n"+
			"event: order\ndata: {\"status\":\"Preparing\"}\n\n",
		rec.Body.String())
}

func TestPipeStopsOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)

	s, err := New(rec, req)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Pipe("order", make(chan []byte), 5*time.Millisecond) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipe did not return")
	}
}

func TestSendEncodesValues(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := New(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.NoError(t, s.Send("hello", map[string]int{"n": 1}))
	assert.Contains(t, rec.Body.String(), "event: hello\ndata: {\"n\":1}\n\n")
}
