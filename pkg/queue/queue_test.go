package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/pkg/queue"
)

var handled atomic.Int32

type echoJob struct {
	OrderID string `json:"orderId"`
}

func (j *echoJob) Handle(ctx context.Context) error {
	if j.OrderID == "" {
		return errors.New("missing order id")
	}
	handled.Add(1)
	return nil
}

type failJob struct{}

func (j *failJob) Handle(ctx context.Context) error { return errors.New("always fails") }

type unregistered struct{}

func (unregistered) Handle(context.Context) error { return nil }

type memStore struct {
	mu   sync.Mutex
	rows []queue.FailedJob
}

func (s *memStore) SaveFailed(_ context.Context, f queue.FailedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, f)
	return nil
}

func newManager() *queue.Manager {
	m := queue.NewManager(queue.NewMemoryDriver(16))
	m.Register(&echoJob{}, func() queue.Job { return &echoJob{} })
	m.Register(&failJob{}, func() queue.Job { return &failJob{} })
	m.SetRetry(2, time.Millisecond)
	return m
}

func TestDispatchAndProcess(t *testing.T) {
	m := newManager()
	ctx, cancel := context.WithCancel(context.Background())
	wg := m.StartWorkers(ctx, 2)

	before := handled.Load()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Dispatch(&echoJob{OrderID: "o1"}))
	}

	assert.Eventually(t, func() bool { return handled.Load()-before == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()
}

func TestExhaustedJobIsRecorded(t *testing.T) {
	m := newManager()
	store := &memStore{}
	m.UseStore(store)

	ctx, cancel := context.WithCancel(context.Background())
	wg := m.StartWorkers(ctx, 1)
	require.NoError(t, m.Dispatch(&failJob{}))

	assert.Eventually(t, func() bool { return len(m.FailedJobs()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()

	failed := m.FailedJobs()[0]
	assert.Equal(t, "*queue_test.failJob", failed.Type)
	assert.Equal(t, 2, failed.Attempts)
	assert.EqualError(t, failed.Err, "always fails")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.rows, 1)
}

func TestDispatchRejectsUnregisteredType(t *testing.T) {
	err := newManager().Dispatch(unregistered{})
	assert.ErrorContains(t, err, "not registered")
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriver(1)
	require.NoError(t, d.Push([]byte("a")))
	assert.ErrorIs(t, d.Push([]byte("b")), queue.ErrQueueFull)
	assert.Equal(t, 1, d.Len())
}

func TestProcessDecodesPayload(t *testing.T) {
	m := newManager()
	before := handled.Load()

	m.Process(context.Background(), []byte(`{"type":"*queue_test.echoJob","payload":{"orderId":"o9"}}`))
	assert.Equal(t, before+1, handled.Load())

	m.Process(context.Background(), []byte(`not json`))
	assert.Empty(t, m.FailedJobs())
}
