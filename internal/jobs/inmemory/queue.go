// Package inmemory provides channel-backed implementations of the jobs
// interfaces for single-process deployments. Queued work does not survive a
// restart; swap in a broker-backed implementation when it must.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/networth-labs/tracker/internal/jobs"
	"github.com/networth-labs/tracker/internal/logger"
)

const defaultWorkers = 5

// Queue distributes jobs over a buffered channel to a pool of workers. It
// implements both jobs.Publisher and jobs.Consumer and is safe for
// concurrent use.
type Queue struct {
	jobChan   chan *jobs.ProcessStatementJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool

	// retryBase scales the linear requeue delay; tests shrink it.
	retryBase time.Duration
}

// NewQueue creates a queue holding up to bufferSize jobs before publishing
// blocks, served by the given number of workers.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Queue{
		jobChan:   make(chan *jobs.ProcessStatementJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   workers,
		retryBase: time.Second,
	}
}

// PublishProcessStatement enqueues one statement-processing job, assigning
// an ID and defaults for anything the caller left unset.
func (q *Queue) PublishProcessStatement(ctx context.Context, job *jobs.ProcessStatementJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("PublishProcessStatement: %w", jobs.ErrClosed)
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.StatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishProcessStatement: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("PublishProcessStatement: %w", jobs.ErrClosed)
	}
}

// Start launches the worker pool. It returns immediately; workers run until
// Stop is called or ctx is cancelled.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("Start: %w", jobs.ErrClosed)
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs one job through the handler and requeues it on failure
// while retries remain.
func (q *Queue) processJob(ctx context.Context, job *jobs.ProcessStatementJob, handler jobs.Handler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("upload_id", job.UploadID).
		Logger()

	job.Status = jobs.StatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.saveJob(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.StatusCompleted
		job.Error = ""
	case job.RetryCount < job.MaxRetries:
		job.RetryCount++
		job.Status = jobs.StatusRetrying
		job.Error = err.Error()
		q.saveJob(ctx, job)

		delay := time.Duration(job.RetryCount) * q.retryBase
		log.Warn().Err(err).Int("retry", job.RetryCount).Dur("delay", delay).Msg("Job failed, requeueing")
		// The callback owns the job from here; no reads after scheduling.
		time.AfterFunc(delay, func() {
			job.Status = jobs.StatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			if pubErr := q.PublishProcessStatement(ctx, job); pubErr != nil {
				log.Error().Err(pubErr).Msg("Requeue failed, job dropped")
			}
		})
		return
	default:
		job.Status = jobs.StatusFailed
		job.Error = err.Error()
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed permanently")
	}

	q.saveJob(ctx, job)
}

// saveJob persists best-effort: queue bookkeeping never blocks processing.
func (q *Queue) saveJob(ctx context.Context, job *jobs.ProcessStatementJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop closes the queue and waits for in-flight jobs, giving up when ctx
// expires.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
