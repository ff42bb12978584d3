package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultPopTimeout = time.Second

// Worker drains the redis queues and executes jobs with the injected
// handler. Retry policy is deliberately absent: a failed job stays failed
// and is observable through its failure reason.
type Worker struct {
	backend     *RedisBackend
	handler     Handler
	logger      *slog.Logger
	concurrency int
	popTimeout  time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithConcurrency sets how many goroutines drain the queues.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func withPopTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.popTimeout = d
		}
	}
}

// NewWorker builds a Worker over the backend.
func NewWorker(backend *RedisBackend, handler Handler, opts ...WorkerOption) *Worker {
	w := &Worker{
		backend:     backend,
		handler:     handler,
		logger:      slog.Default(),
		concurrency: 1,
		popTimeout:  defaultPopTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the drain loops. Callers must pair it with Stop.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.loop(ctx)
		}()
	}
}

// Stop cancels the loops and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		id, err := w.backend.dequeue(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("job dequeue failed", "error", err.Error())
			time.Sleep(w.popTimeout)
			continue
		}
		if id == "" {
			continue
		}
		w.run(ctx, id)
	}
}

func (w *Worker) run(ctx context.Context, id string) {
	job, err := w.backend.Job(ctx, id)
	if err != nil {
		// Expired between pop and load; nothing to execute.
		w.logger.Warn("dequeued job is gone", "job_id", id, "error", err.Error())
		return
	}

	if err := w.backend.markActive(ctx, id); err != nil {
		w.logger.Error("failed to mark job active", "job_id", id, "error", err.Error())
	}

	result, err := w.handler(ctx, job)
	if err != nil {
		w.logger.Error("job failed", "job_id", id, "error", err.Error())
		if failErr := w.backend.fail(ctx, id, err.Error()); failErr != nil {
			w.logger.Error("failed to record job failure", "job_id", id, "error", failErr.Error())
		}
		return
	}

	if err := w.backend.complete(ctx, id, result); err != nil {
		w.logger.Error("failed to record job completion", "job_id", id, "error", err.Error())
		return
	}
	w.logger.Info("job completed", "job_id", id)
}
