package queue

import (
	"context"
	"errors"
)

var (
	ErrQueueFull = errors.New("queue: memory queue is full")
	ErrClosed    = errors.New("queue: driver closed")
)

// MemoryDriver is a buffered channel. Jobs do not survive a restart.
type MemoryDriver struct {
	ch chan []byte
}

func NewMemoryDriver(size int) *MemoryDriver {
	return &MemoryDriver{ch: make(chan []byte, size)}
}

// Push never blocks; a full buffer is reported as ErrQueueFull.
func (d *MemoryDriver) Push(payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.ch:
		return payload, nil
	}
}

func (d *MemoryDriver) Len() int { return len(d.ch) }
