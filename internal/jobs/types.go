// Package jobs defines the queue contract for asynchronous statement
// processing: publishers enqueue work, consumers run it through a handler,
// and a JobStore keeps execution state queryable from the API.
package jobs

import (
	"context"
	"errors"
	"time"
)

// Type discriminates job payloads on the queue.
type Type string

// TypeProcessStatement is a statement upload waiting for extraction.
const TypeProcessStatement Type = "process_statement"

// Status is the queue-level lifecycle of a job. It is separate from the
// upload's own status: a job can be retrying while its upload stays
// PROCESSING.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

var (
	// ErrNotFound is returned by JobStore lookups for unknown job IDs.
	ErrNotFound = errors.New("jobs: job not found")

	// ErrClosed is returned when publishing to a stopped queue.
	ErrClosed = errors.New("jobs: queue is closed")
)

// ProcessStatementJob asks a worker to run one statement upload through the
// extraction pipeline.
type ProcessStatementJob struct {
	JobID    string `json:"job_id"`
	UploadID string `json:"upload_id"`
	UserID   string `json:"user_id"`

	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	// RetryCount tracks queue-level requeues, which cover infrastructure
	// faults. Extraction retries happen inside the pipeline and are not
	// visible here.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is the minimal view the queue needs of any payload type.
type Job interface {
	GetID() string
	GetType() Type
	GetStatus() Status
}

func (j *ProcessStatementJob) GetID() string     { return j.JobID }
func (j *ProcessStatementJob) GetType() Type     { return TypeProcessStatement }
func (j *ProcessStatementJob) GetStatus() Status { return j.Status }

// Publisher enqueues jobs. Implementations range from the in-memory queue
// to an external broker; callers must not assume delivery order.
type Publisher interface {
	PublishProcessStatement(ctx context.Context, job *ProcessStatementJob) error
	Close() error
}

// Handler processes one job. A returned error tells the queue to requeue
// the job if it has attempts left.
type Handler func(ctx context.Context, job Job) error

// Consumer feeds queued jobs through a handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// JobStore persists queue state so job progress survives inspection from
// another goroutine or request.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessStatementJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*ProcessStatementJob, error)
}

// Filter narrows ListJobs results. Zero values mean no constraint.
type Filter struct {
	UploadID string
	Status   Status
	Limit    int
	Offset   int
}
