// Package taskqueue bounds how many conversions run their ffmpeg passes at
// the same time.
package taskqueue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool hands out a fixed number of worker slots. Requests beyond that wait in
// arrival order until a slot frees or their context ends.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	waiting  atomic.Int64
}

// NewPool returns a pool with size slots. size must be positive.
func NewPool(size int) *Pool {
	if size < 1 {
		panic(fmt.Sprintf("taskqueue: invalid pool size %d", size))
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Do runs fn once a slot is available. It returns ctx's error without calling
// fn if the context ends first. wait is the time spent queued.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) (wait time.Duration, err error) {
	start := time.Now()
	p.waiting.Add(1)
	err = p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	wait = time.Since(start)
	if err != nil {
		return wait, fmt.Errorf("waiting for worker: %w", err)
	}
	defer p.sem.Release(1)

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	return wait, fn(ctx)
}

// Size is the number of worker slots.
func (p *Pool) Size() int { return p.size }

// InFlight is the number of slots currently held.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Waiting is the number of callers queued for a slot.
func (p *Pool) Waiting() int { return int(p.waiting.Load()) }
