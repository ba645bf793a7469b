// Package workerpool runs independent tasks on a bounded set of goroutines.
package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxInFlight bounds queued tasks when no limit is configured.
const DefaultMaxInFlight = 100

// Task is one unit of work. Tasks report their own outcome; the pool only
// schedules them.
type Task func(ctx context.Context)

// Options size the pool.
type Options struct {
	Threads     int
	MinThreads  int
	MaxThreads  int
	MaxInFlight int
}

// Size returns Threads clamped to [MinThreads, MaxThreads]. A MaxThreads of
// zero leaves the upper bound open.
func (o Options) Size() int {
	n := o.Threads
	if n < o.MinThreads {
		n = o.MinThreads
	}
	if o.MaxThreads > 0 && n > o.MaxThreads {
		n = o.MaxThreads
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Pool executes submitted tasks. A pool of size zero runs every task in the
// submitting goroutine.
type Pool struct {
	size  int
	tasks chan Task
	group *errgroup.Group
	ctx   context.Context

	mu     sync.Mutex
	closed bool
}

// New starts a pool. Tasks receive the group context derived from ctx, which
// is cancelled once ctx is done or Wait returns.
func New(ctx context.Context, opts Options) *Pool {
	p := &Pool{size: opts.Size(), ctx: ctx}
	if p.size == 0 {
		return p
	}

	inFlight := opts.MaxInFlight
	if inFlight <= 0 {
		inFlight = DefaultMaxInFlight
	}
	p.tasks = make(chan Task, inFlight)
	p.group, p.ctx = errgroup.WithContext(ctx)
	p.group.SetLimit(p.size)
	for i := 0; i < p.size; i++ {
		p.group.Go(p.work)
	}
	return p
}

// work runs queued tasks until the queue is closed and drained.
func (p *Pool) work() error {
	for task := range p.tasks {
		task(p.ctx)
	}
	return nil
}

// Context is the context tasks run under.
func (p *Pool) Context() context.Context { return p.ctx }

// Size is the number of workers.
func (p *Pool) Size() int { return p.size }

// Submit queues task, blocking while the queue is full. It returns the
// context error when ctx is cancelled before the task could be queued.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.size == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		task(p.ctx)
		return nil
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait stops accepting tasks and blocks until every queued task finished.
// It is safe to call more than once.
func (p *Pool) Wait() {
	if p.size == 0 {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.group.Wait()
}
