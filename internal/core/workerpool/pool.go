// Package workerpool runs CPU-bound work (OCR, image transcoding) on a bounded
// goroutine pool so that network-bound fan-out never competes with it for
// unbounded parallelism.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/panjf2000/ants/v2"
)

// ErrPoolClosed is returned when work is submitted after Release.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool is a thin, context-aware wrapper around an ants pool.
type Pool struct {
	pool *ants.Pool
}

// New creates a pool with the given number of workers.
// A size below 1 defaults to runtime.NumCPU().
func New(size int) (*Pool, error) {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Run executes fn on a pool worker and waits for it.
// If ctx ends first Run returns ctx.Err(); fn still runs to completion in the background.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("worker panic: %v", r)
			}
		}()
		done <- fn()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return fmt.Errorf("submit work: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cap returns the number of workers.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Release stops the pool. Pending work is allowed to finish.
func (p *Pool) Release() {
	p.pool.Release()
}
