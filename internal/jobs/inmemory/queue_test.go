package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/networth-labs/tracker/internal/jobs"
)

func startQueue(t *testing.T, handler jobs.Handler) (*Queue, *Store) {
	t.Helper()
	store := NewStore()
	q := NewQueue(8, 2, store)
	q.retryBase = time.Millisecond
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q, store
}

// waitForStatus polls the store until the job reaches the wanted status.
func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.Status) *jobs.ProcessStatementJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	job, err := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached %s (last: %+v, err %v)", jobID, want, job, err)
	return nil
}

func TestQueue_PublishAssignsDefaults(t *testing.T) {
	store := NewStore()
	q := NewQueue(1, 1, store)

	job := &jobs.ProcessStatementJob{UploadID: "up-1", UserID: "user-1"}
	if err := q.PublishProcessStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessStatement() error = %v", err)
	}
	if job.JobID == "" {
		t.Error("JobID not assigned")
	}
	if job.Status != jobs.StatusPending {
		t.Errorf("Status = %s, want pending", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
	if job.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", job.MaxRetries)
	}
	if _, err := store.GetJob(context.Background(), job.JobID); err != nil {
		t.Errorf("job not persisted: %v", err)
	}
}

func TestQueue_ProcessesJobs(t *testing.T) {
	var gotUpload atomic.Value
	q, store := startQueue(t, func(_ context.Context, job jobs.Job) error {
		if job.GetType() != jobs.TypeProcessStatement {
			t.Errorf("job type = %s, want %s", job.GetType(), jobs.TypeProcessStatement)
		}
		if psj, ok := job.(*jobs.ProcessStatementJob); ok {
			gotUpload.Store(psj.UploadID)
		}
		return nil
	})

	job := &jobs.ProcessStatementJob{UploadID: "up-1", UserID: "user-1"}
	if err := q.PublishProcessStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessStatement() error = %v", err)
	}

	done := waitForStatus(t, store, job.JobID, jobs.StatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("timestamps = %v/%v, want both set", done.StartedAt, done.CompletedAt)
	}
	if done.Error != "" {
		t.Errorf("Error = %q, want empty", done.Error)
	}
	if got, _ := gotUpload.Load().(string); got != "up-1" {
		t.Errorf("handler saw upload %q, want up-1", got)
	}
}

func TestQueue_RetriesFailedJobs(t *testing.T) {
	var calls atomic.Int32
	q, store := startQueue(t, func(context.Context, jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("transient store fault")
		}
		return nil
	})

	job := &jobs.ProcessStatementJob{UploadID: "up-1", UserID: "user-1"}
	if err := q.PublishProcessStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessStatement() error = %v", err)
	}

	done := waitForStatus(t, store, job.JobID, jobs.StatusCompleted)
	if done.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", done.RetryCount)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("handler calls = %d, want 2", got)
	}
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	q, store := startQueue(t, func(context.Context, jobs.Job) error {
		calls.Add(1)
		return errors.New("broker unreachable")
	})

	job := &jobs.ProcessStatementJob{UploadID: "up-1", UserID: "user-1", MaxRetries: 2}
	if err := q.PublishProcessStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessStatement() error = %v", err)
	}

	done := waitForStatus(t, store, job.JobID, jobs.StatusFailed)
	if done.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", done.RetryCount)
	}
	if done.Error == "" {
		t.Error("Error not recorded on failed job")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want 3 (initial + 2 retries)", got)
	}
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, 1, NewStore())
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	err := q.PublishProcessStatement(context.Background(), &jobs.ProcessStatementJob{UploadID: "up-1"})
	if !errors.Is(err, jobs.ErrClosed) {
		t.Errorf("PublishProcessStatement() error = %v, want ErrClosed", err)
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(1, 1, nil)

	// Fill the buffer; nobody is consuming.
	if err := q.PublishProcessStatement(context.Background(), &jobs.ProcessStatementJob{UploadID: "up-1"}); err != nil {
		t.Fatalf("PublishProcessStatement() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.PublishProcessStatement(ctx, &jobs.ProcessStatementJob{UploadID: "up-2"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("PublishProcessStatement() error = %v, want deadline exceeded", err)
	}
}
