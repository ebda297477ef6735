package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/networth-labs/tracker/internal/jobs"
)

func testJob(id, uploadID string, status jobs.Status, createdAt time.Time) *jobs.ProcessStatementJob {
	return &jobs.ProcessStatementJob{
		JobID:     id,
		UploadID:  uploadID,
		UserID:    "user-1",
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := testJob("job-1", "up-1", jobs.StatusPending, time.Now())
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.UploadID != "up-1" || got.Status != jobs.StatusPending {
		t.Errorf("GetJob() = %+v, want upload up-1 pending", got)
	}

	// The returned copy must not alias the stored record.
	got.Status = jobs.StatusFailed
	again, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if again.Status != jobs.StatusPending {
		t.Errorf("stored status = %s, want pending after caller mutation", again.Status)
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	s := NewStore()
	if err := s.SaveJob(context.Background(), &jobs.ProcessStatementJob{UploadID: "up-1"}); err == nil {
		t.Fatal("SaveJob() with empty ID succeeded, want error")
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore()
	if _, err := s.GetJob(context.Background(), "nope"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("GetJob() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []*jobs.ProcessStatementJob{
		testJob("job-1", "up-1", jobs.StatusCompleted, base),
		testJob("job-2", "up-1", jobs.StatusFailed, base.Add(time.Minute)),
		testJob("job-3", "up-2", jobs.StatusPending, base.Add(2*time.Minute)),
		testJob("job-4", "up-3", jobs.StatusPending, base.Add(3*time.Minute)),
	}
	for _, job := range seed {
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob(%s) error = %v", job.JobID, err)
		}
	}

	tests := []struct {
		name    string
		filter  jobs.Filter
		wantIDs []string
	}{
		{name: "all newest first", filter: jobs.Filter{}, wantIDs: []string{"job-4", "job-3", "job-2", "job-1"}},
		{name: "by upload", filter: jobs.Filter{UploadID: "up-1"}, wantIDs: []string{"job-2", "job-1"}},
		{name: "by status", filter: jobs.Filter{Status: jobs.StatusPending}, wantIDs: []string{"job-4", "job-3"}},
		{name: "limit", filter: jobs.Filter{Limit: 2}, wantIDs: []string{"job-4", "job-3"}},
		{name: "offset and limit", filter: jobs.Filter{Offset: 1, Limit: 2}, wantIDs: []string{"job-3", "job-2"}},
		{name: "offset past end", filter: jobs.Filter{Offset: 10}, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("ListJobs() returned %d jobs, want %d", len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].JobID != want {
					t.Errorf("ListJobs()[%d] = %s, want %s", i, got[i].JobID, want)
				}
			}
		})
	}
}
