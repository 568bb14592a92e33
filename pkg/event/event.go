// Package event is an in-process publish/subscribe bus. Listeners run on a
// bounded worker pool so a slow subscriber never holds up the publisher.
package event

import (
	"context"
	"errors"
	"sync"

	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/workerpool"
)

// Event is anything with a stable name, e.g. "order.paid".
type Event interface {
	Name() string
}

// Listener receives events. ctx keeps the publisher's values (logger,
// request id) but is never cancelled by it.
type Listener func(ctx context.Context, e Event)

type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	pool      *workerpool.Pool
}

// NewBus dispatches through pool; a nil pool makes every dispatch synchronous.
func NewBus(pool *workerpool.Pool) *Bus {
	return &Bus{listeners: map[string][]Listener{}, pool: pool}
}

// Listen subscribes l to events named name. "*" receives every event.
func (b *Bus) Listen(name string, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

func (b *Bus) listenersFor(name string) []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Listener, 0, len(b.listeners[name])+len(b.listeners["*"]))
	out = append(out, b.listeners[name]...)
	return append(out, b.listeners["*"]...)
}

// Fire calls every listener synchronously.
func (b *Bus) Fire(ctx context.Context, e Event) {
	for _, l := range b.listenersFor(e.Name()) {
		l(ctx, e)
	}
}

// Dispatch hands each listener to the pool. When the pool is saturated the
// listener runs inline rather than dropping the event.
func (b *Bus) Dispatch(ctx context.Context, e Event) {
	detached := context.WithoutCancel(ctx)

	for _, l := range b.listenersFor(e.Name()) {
		l := l
		if b.pool == nil {
			l(detached, e)
			continue
		}

		err := b.pool.Submit(func() { l(detached, e) })
		switch {
		case err == nil:
		case errors.Is(err, workerpool.ErrPoolFull):
			logger.WithCtx(ctx).Warn("event: pool full, running listener inline", "event", e.Name())
			l(detached, e)
		default:
			logger.WithCtx(ctx).Warn("event: dropped", "event", e.Name(), "error", err)
		}
	}
}

// Flush removes every listener.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = map[string][]Listener{}
}
