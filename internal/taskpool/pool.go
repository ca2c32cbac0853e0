// Package taskpool implements the bounded fire-and-forget worker pool named
// in spec §9's Design Note: every detached task (vector indexing on
// remember, access-tracking on recall, last-used stamping on auth) is
// submitted here rather than as a raw `go func()`, so saturation degrades to
// a logged drop instead of unbounded goroutine growth.
package taskpool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of detached work. It receives a context derived from the
// pool's lifetime, not the originating request's — detached tasks survive
// the request that spawned them but are cancelled on pool Shutdown (§5:
// "detached tasks receive a best-effort cancellation but are allowed to
// complete silently").
type Task func(ctx context.Context)

// Pool is a fixed-size goroutine pool fed by a buffered channel.
type Pool struct {
	queue  chan Task
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a pool with the given number of workers and queue capacity.
func New(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan Task, queueSize),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.queue:
			p.run(task)
		}
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("taskpool: task panicked", zap.Any("recover", r))
		}
	}()
	task(p.ctx)
}

// Submit enqueues task without blocking. It returns false if the queue is
// saturated; callers must log a warning and proceed, never block the
// request path on a detached task (§9 Design Note).
func (p *Pool) Submit(task Task) bool {
	select {
	case p.queue <- task:
		return true
	default:
		p.logger.Warn("taskpool: queue saturated, dropping task")
		return false
	}
}

// Shutdown cancels all in-flight and pending tasks and waits for workers to
// exit. The queue is deliberately left open, not closed: a concurrent
// Submit racing Shutdown must never panic on a send to a closed channel;
// unconsumed queued tasks are simply abandoned.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
