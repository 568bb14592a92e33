// Package queue runs background jobs (order confirmations, receipt
// archiving) off the request path.
//
//	type SendOrderConfirmation struct{ OrderID string }
//	func (j *SendOrderConfirmation) Handle(ctx context.Context) error { ... }
//
//	m := queue.NewManager(queue.NewMemoryDriver(1000))
//	m.Register(&SendOrderConfirmation{}, func() queue.Job { return &SendOrderConfirmation{} })
//	m.Dispatch(&SendOrderConfirmation{OrderID: id})
//
// Jobs travel as JSON envelopes tagged with their Go type name, so any
// driver (memory, redis, rabbitmq) can carry them between processes.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/metrics"
)

// Job is a unit of background work. A non-nil error schedules a retry.
type Job interface {
	Handle(ctx context.Context) error
}

// Driver stores encoded envelopes. Pop blocks until a payload is available
// or ctx ends; a nil payload with a nil error means "nothing yet".
type Driver interface {
	Push(payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

type FailedJob struct {
	Type     string
	Payload  []byte
	Err      error
	FailedAt time.Time
	Attempts int
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Manager owns a driver, the job registry and the retry policy.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  time.Duration
	store    FailedStore
}

// FailedStore persists jobs that exhausted their retries.
type FailedStore interface {
	SaveFailed(ctx context.Context, f FailedJob) error
}

func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
}

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

// SetRetry sets the attempts per job and the base backoff, which grows
// linearly with the attempt number.
func (m *Manager) SetRetry(attempts int, backoff time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempts < 1 {
		attempts = 1
	}
	m.maxRetry = attempts
	m.backoff = backoff
}

// UseStore enables persistence of exhausted jobs.
func (m *Manager) UseStore(s FailedStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = s
}

// Register makes a job type decodable. sample is only used for its type name.
func (m *Manager) Register(sample Job, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[TypeName(sample)] = factory
}

// TypeName is the registry key of a job.
func TypeName(job Job) string { return fmt.Sprintf("%T", job) }

func (m *Manager) Dispatch(job Job) error {
	typeName := TypeName(job)

	m.mu.RLock()
	_, known := m.registry[typeName]
	d := m.driver
	m.mu.RUnlock()
	if !known {
		return fmt.Errorf("queue: job type %s is not registered", typeName)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", typeName, err)
	}
	env, err := json.Marshal(envelope{Type: typeName, Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	return d.Push(env)
}

// StartWorkers launches n workers that run until ctx is cancelled. The
// returned WaitGroup completes once every worker has exited.
func (m *Manager) StartWorkers(ctx context.Context, n int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	return &wg
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		m.Process(ctx, raw)
	}
}

// Process decodes and runs one envelope with retries.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	m.mu.RLock()
	attempts, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = job.Handle(ctx)
		if lastErr == nil {
			metrics.RecordQueueJob(env.Type, "success", start)
			logger.Debug("queue: job processed", "type", env.Type, "attempt", attempt)
			return
		}
		logger.Warn("queue: job failed", "type", env.Type, "attempt", attempt, "error", lastErr)
		if attempt < attempts && !sleep(ctx, time.Duration(attempt)*backoff) {
			break
		}
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	logger.Error("queue: job exhausted retries", "type", env.Type, "error", lastErr)
	m.recordFailed(ctx, FailedJob{
		Type:     env.Type,
		Payload:  env.Payload,
		Err:      lastErr,
		FailedAt: time.Now(),
		Attempts: attempts,
	})
}

func (m *Manager) recordFailed(ctx context.Context, f FailedJob) {
	m.mu.Lock()
	m.failed = append(m.failed, f)
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return
	}
	if err := store.SaveFailed(context.WithoutCancel(ctx), f); err != nil {
		logger.Error("queue: persist failed job", "type", f.Type, "error", err)
	}
}

// FailedJobs returns a snapshot of jobs that exhausted their retries.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}

// sleep waits d or until ctx ends; false means ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
