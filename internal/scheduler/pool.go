package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"captioner/internal/config"
	"captioner/internal/logging"
)

// Pool runs jobs on a fixed set of in-process workers.
type Pool struct {
	workers int
	queue   chan string
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	active    atomic.Int64
	processed atomic.Uint64
	failed    atomic.Uint64
}

// NewPool creates a pool. Ids enqueued before Start wait in the buffer.
func NewPool(workers, buffer int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Pool{
		workers: workers,
		queue:   make(chan string, buffer),
		logger:  logging.NewComponentLogger(logger, "scheduler"),
		done:    make(chan struct{}),
	}
}

// Enqueue hands jobID to the pool, blocking while the buffer is full.
func (p *Pool) Enqueue(ctx context.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return errors.New("scheduler: job id required")
	}
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	select {
	case p.queue <- jobID:
		return nil
	case <-p.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("scheduler: handler required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	if p.running {
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.work(runCtx, i+1, handler)
	}
	p.logger.Info("scheduler started",
		logging.String("backend", config.SchedulerLocal),
		logging.Int("workers", p.workers),
		logging.Int("buffer", cap(p.queue)),
	)
	return nil
}

// Stop cancels in-flight handlers and waits for workers to exit. Ids still
// buffered are dropped; the daemon re-enqueues pending jobs on the next start.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.done)
	cancel := p.cancel
	p.running = false
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Stats reports queue depth and counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Backend:   config.SchedulerLocal,
		Queued:    len(p.queue),
		Running:   int(p.active.Load()),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool) work(ctx context.Context, worker int, handler Handler) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-p.queue:
			p.runOne(ctx, worker, handler, jobID)
		}
	}
}

func (p *Pool) runOne(ctx context.Context, worker int, handler Handler, jobID string) {
	p.active.Add(1)
	defer p.active.Add(-1)

	err := safeCall(ctx, handler, jobID)
	p.processed.Add(1)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	p.failed.Add(1)
	logging.WarnWithContext(p.logger, "job handler failed", "scheduler_handler_failed",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("worker", worker),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the job record; it may need to be restarted"),
	)
}

// safeCall keeps a panicking handler from taking down the worker.
func safeCall(ctx context.Context, handler Handler, jobID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return handler(ctx, jobID)
}
