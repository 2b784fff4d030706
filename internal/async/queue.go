package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stickermap/internal/extract"
	"stickermap/internal/pipeline"
	"stickermap/internal/resolve"
)

// Job is one document to map. Documents are independent; jobs carry no
// cross-document state.
type Job struct {
	Doc         extract.SourceDocument
	SubmittedAt time.Time
}

// ResultFunc receives the outcome of one job. Called from worker goroutines.
type ResultFunc func(job Job, report *resolve.Report, err error)

// MapperQueue fans documents out over a fixed worker pool sharing one
// pipeline (and through it, one read-only catalog). Cancelling or failing one
// document never affects the others.
type MapperQueue struct {
	pipe     *pipeline.Pipeline
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*MapperQueue)

func WithWorkers(n int) Option {
	return func(q *MapperQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *MapperQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *MapperQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithResultFunc(fn ResultFunc) Option {
	return func(q *MapperQueue) {
		q.onResult = fn
	}
}

func NewMapperQueue(pipe *pipeline.Pipeline, logger *slog.Logger, opts ...Option) *MapperQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &MapperQueue{
		pipe:    pipe,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *MapperQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					report, err := q.pipe.Process(ctx, job.Doc)
					cancel()

					if err != nil {
						q.logger.Error("mapping failed", "worker_id", workerID, "source_id", job.Doc.SourceID, "error", err)
					} else {
						q.logger.Info("mapped document", "worker_id", workerID, "source_id", job.Doc.SourceID, "accepted", report.Summary.Accepted)
					}
					if q.onResult != nil {
						q.onResult(job, report, err)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *MapperQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "source_id", job.Doc.SourceID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued document", "source_id", job.Doc.SourceID)
	default:
		q.logger.Warn("queue full, applying backpressure", "source_id", job.Doc.SourceID)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight jobs, up to ctx's deadline.
func (q *MapperQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-done:
		q.logger.Info("queue drained")
	case <-ctx.Done():
		q.logger.Warn("shutdown deadline reached before queue drained")
	}
}
