package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/feastly/feastly/pkg/event"
	"github.com/feastly/feastly/pkg/workerpool"
)

type paid struct{ orderID string }

func (paid) Name() string { return "order.paid" }

type cancelled struct{}

func (cancelled) Name() string { return "order.cancelled" }

func TestFireRunsNamedAndWildcardListeners(t *testing.T) {
	bus := event.NewBus(nil)

	var got []string
	bus.Listen("order.paid", func(_ context.Context, e event.Event) {
		got = append(got, "paid:"+e.(paid).orderID)
	})
	bus.Listen("*", func(_ context.Context, e event.Event) {
		got = append(got, "any:"+e.Name())
	})

	bus.Fire(context.Background(), paid{orderID: "o1"})
	bus.Fire(context.Background(), cancelled{})

	assert.Equal(t, []string{"paid:o1", "any:order.paid", "any:order.cancelled"}, got)
}

func TestDispatchUsesPoolAndDetachesContext(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()
	bus := event.NewBus(pool)

	var wg sync.WaitGroup
	wg.Add(1)
	var ctxErr error
	bus.Listen("order.paid", func(ctx context.Context, _ event.Event) {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		ctxErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Dispatch(ctx, paid{orderID: "o2"})
	cancel()

	wg.Wait()
	assert.NoError(t, ctxErr)
}

func TestFlush(t *testing.T) {
	bus := event.NewBus(nil)
	called := false
	bus.Listen("order.paid", func(context.Context, event.Event) { called = true })
	bus.Flush()

	bus.Fire(context.Background(), paid{})
	assert.False(t, called)
}
