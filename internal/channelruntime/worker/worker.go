// Package worker runs jobs in per-key queues. Jobs sharing a key run one at
// a time in arrival order; a weighted semaphore caps how many keys run at
// once.
package worker

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

var ErrQueueFull = errors.New("worker: queue full")

type StartOptions[J any] struct {
	Ctx    context.Context
	Sem    *semaphore.Weighted
	Jobs   <-chan J
	Handle func(context.Context, J)
}

// Start drains opts.Jobs in a goroutine until the channel closes or Ctx is
// done.
func Start[J any](opts StartOptions[J]) {
	go func() {
		for {
			select {
			case <-opts.Ctx.Done():
				return
			case job, ok := <-opts.Jobs:
				if !ok {
					return
				}
				if err := opts.Sem.Acquire(opts.Ctx, 1); err != nil {
					return
				}
				func() {
					defer opts.Sem.Release(1)
					opts.Handle(opts.Ctx, job)
				}()
			}
		}
	}()
}

// Group lazily starts one worker per key.
type Group[K comparable, J any] struct {
	ctx    context.Context
	sem    *semaphore.Weighted
	queue  int
	handle func(context.Context, K, J)

	mu      sync.Mutex
	workers map[K]chan J
}

// NewGroup runs at most limit keys at once; each key buffers up to queue
// pending jobs.
func NewGroup[K comparable, J any](ctx context.Context, limit int64, queue int, handle func(context.Context, K, J)) *Group[K, J] {
	if limit <= 0 {
		limit = 1
	}
	if queue <= 0 {
		queue = 16
	}
	return &Group[K, J]{
		ctx:     ctx,
		sem:     semaphore.NewWeighted(limit),
		queue:   queue,
		handle:  handle,
		workers: make(map[K]chan J),
	}
}

func (g *Group[K, J]) jobsFor(key K) chan J {
	g.mu.Lock()
	defer g.mu.Unlock()
	if jobs, ok := g.workers[key]; ok {
		return jobs
	}
	jobs := make(chan J, g.queue)
	g.workers[key] = jobs
	Start(StartOptions[J]{
		Ctx:  g.ctx,
		Sem:  g.sem,
		Jobs: jobs,
		Handle: func(ctx context.Context, job J) {
			g.handle(ctx, key, job)
		},
	})
	return jobs
}

// Enqueue blocks until the job is queued, ctx or the group's context is
// done.
func (g *Group[K, J]) Enqueue(ctx context.Context, key K, job J) error {
	return Enqueue(ctx, g.ctx, g.jobsFor(key), job)
}

// TryEnqueue queues the job or returns ErrQueueFull without waiting.
func (g *Group[K, J]) TryEnqueue(key K, job J) error {
	if err := g.ctx.Err(); err != nil {
		return err
	}
	select {
	case g.jobsFor(key) <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func Enqueue[J any](ctx, workersCtx context.Context, jobs chan<- J, job J) error {
	if ctx == nil {
		ctx = workersCtx
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-workersCtx.Done():
		return workersCtx.Err()
	case jobs <- job:
		return nil
	}
}
