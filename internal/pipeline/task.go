// Package pipeline drives one statement upload end to end: fetch the stored
// document, extract it, reconcile the result into positions, and move the
// upload through its status lifecycle. Transient failures retry the whole
// sequence with exponential backoff; the sequence is safe to re-run because
// reconciliation is idempotent.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/archive"
	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/filestore"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/observability"
	"github.com/networth-labs/tracker/internal/reconcile"
	"github.com/networth-labs/tracker/internal/store"
)

// Extractor is the slice of the extraction client the task depends on.
type Extractor interface {
	Ready() error
	Extract(ctx context.Context, document []byte, mimeType string) (*extraction.Result, error)
}

// Reconciler applies one extraction result to the user's positions.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string, res *extraction.Result) (*reconcile.Result, error)
}

// RetryPolicy bounds the attempt loop. MaxRetries counts retries after the
// first attempt; the delay before retry n is BackoffBase << n.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
}

// DefaultRetryPolicy allows three retries at 60s, 120s and 240s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BackoffBase: time.Minute}
}

// Result statuses. "error" means the pipeline never got to run: the upload
// record is untouched.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusError     = "error"
)

// Result is the structured outcome of one ProcessUpload call. Domain
// failures land here, not in the returned error.
type Result struct {
	UploadID     string          `json:"upload_id"`
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	Created      bool            `json:"created"`
	Updated      bool            `json:"updated"`
	HistoryCount int             `json:"history_count"`
	Confidence   decimal.Decimal `json:"confidence"`
	Attempts     int             `json:"attempts"`
}

// TaskConfig wires a Task. Archive and Metrics are optional; a zero Retry
// means DefaultRetryPolicy.
type TaskConfig struct {
	Uploads    store.UploadStore
	Files      filestore.Store
	Extractor  Extractor
	Reconciler Reconciler
	Archive    archive.Sink
	Metrics    *observability.Metrics
	Retry      RetryPolicy
}

// Task processes statement uploads.
type Task struct {
	uploads    store.UploadStore
	files      filestore.Store
	extractor  Extractor
	reconciler Reconciler
	archive    archive.Sink
	metrics    *observability.Metrics
	retry      RetryPolicy

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTask builds a task from the config.
func NewTask(cfg TaskConfig) *Task {
	if cfg.Archive == nil {
		cfg.Archive = archive.NopSink{}
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}
	if cfg.Retry.BackoffBase <= 0 {
		cfg.Retry.BackoffBase = time.Minute
	}
	return &Task{
		uploads:    cfg.Uploads,
		files:      cfg.Files,
		extractor:  cfg.Extractor,
		reconciler: cfg.Reconciler,
		archive:    cfg.Archive,
		metrics:    cfg.Metrics,
		retry:      cfg.Retry,
		sleep:      sleepContext,
	}
}

// attemptOutcome carries everything a successful attempt produced.
type attemptOutcome struct {
	recon      *reconcile.Result
	payload    json.RawMessage
	confidence decimal.Decimal
}

// ProcessUpload runs the pipeline for one upload. Domain outcomes (missing
// upload, failed extraction, exhausted retries) come back inside the Result
// with a nil error; the error return is reserved for context cancellation
// and store faults, which tell the caller the outcome is unknown.
func (t *Task) ProcessUpload(ctx context.Context, uploadID string) (*Result, error) {
	log := logger.FromContext(ctx).With().Str("upload_id", uploadID).Logger()
	ctx = logger.WithContext(ctx, log)

	up, err := t.uploads.GetUpload(ctx, uploadID)
	if errors.Is(err, store.ErrNotFound) {
		return &Result{UploadID: uploadID, Status: StatusError, Message: "upload not found"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ProcessUpload: %w", err)
	}

	// An unconfigured extractor is an operator problem; leave the record
	// PENDING so deploying credentials picks it up again.
	if err := t.extractor.Ready(); err != nil {
		log.Warn().Err(err).Msg("Extraction client not configured, leaving upload untouched")
		return &Result{UploadID: uploadID, Status: StatusError, Message: err.Error()}, nil
	}

	if err := up.MarkProcessing(); err != nil {
		return &Result{UploadID: uploadID, Status: StatusError, Message: err.Error()}, nil
	}
	if err := t.uploads.UpdateUpload(ctx, up); err != nil {
		return nil, fmt.Errorf("ProcessUpload: %w", err)
	}

	for attempt := 0; ; attempt++ {
		outcome, attemptErr := t.runAttempt(ctx, up)
		if attemptErr == nil {
			return t.complete(ctx, up, outcome, attempt+1)
		}

		// Cancellation is not a domain failure; surface it so the caller
		// knows the upload is still PROCESSING.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ProcessUpload: %w", ctx.Err())
		}

		if isTerminal(attemptErr) {
			log.Error().Err(attemptErr).Int("attempt", attempt+1).Msg("Statement processing failed permanently")
			return t.fail(ctx, up, attemptErr.Error(), attempt+1)
		}

		if attempt >= t.retry.MaxRetries {
			log.Error().Err(attemptErr).Int("attempt", attempt+1).Msg("Statement processing exhausted retries")
			return t.fail(ctx, up, "Max retries exceeded. "+attemptErr.Error(), attempt+1)
		}

		delay := t.retry.BackoffBase << attempt
		t.metrics.RetryScheduled()
		log.Warn().
			Err(attemptErr).
			Int("attempt", attempt+1).
			Dur("retry_in", delay).
			Msg("Transient statement failure, retrying")

		if err := t.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("ProcessUpload: %w", err)
		}

		// Re-read the record so the next attempt starts from current state.
		up, err = t.uploads.GetUpload(ctx, uploadID)
		if err != nil {
			return nil, fmt.Errorf("ProcessUpload: %w", err)
		}
	}
}

// runAttempt executes one full pass: fetch file, extract, reconcile. The
// returned error is a domain error for the caller to classify.
func (t *Task) runAttempt(ctx context.Context, up *domain.StatementUpload) (*attemptOutcome, error) {
	log := logger.FromContext(ctx)

	runID, err := t.archive.StartRun(ctx, up.ID, up.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("Archive unavailable, continuing without run record")
		runID = ""
	}

	outcome, err := t.extractAndReconcile(ctx, up)
	if runID != "" {
		if err != nil {
			if archErr := t.archive.FinishRun(ctx, runID, archive.RunStatusFailed, err.Error()); archErr != nil {
				log.Warn().Err(archErr).Msg("Failed to record failed run")
			}
		} else {
			if archErr := t.archive.StoreOutput(ctx, runID, up.ID, outcome.payload); archErr != nil {
				log.Warn().Err(archErr).Msg("Failed to record model output")
			}
			if archErr := t.archive.FinishRun(ctx, runID, archive.RunStatusSuccess, ""); archErr != nil {
				log.Warn().Err(archErr).Msg("Failed to record successful run")
			}
		}
	}
	return outcome, err
}

func (t *Task) extractAndReconcile(ctx context.Context, up *domain.StatementUpload) (*attemptOutcome, error) {
	document, err := t.files.Fetch(ctx, up.FileRef)
	if err != nil {
		return nil, fmt.Errorf("fetching statement file: %w", err)
	}

	start := time.Now()
	res, err := t.extractor.Extract(ctx, document, filestore.DetectMIMEType(up.FileName))
	t.metrics.ObserveExtraction(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("extracting statement: %w", err)
	}

	recon, err := t.reconciler.Reconcile(ctx, up.UserID, res)
	if err != nil {
		return nil, fmt.Errorf("reconciling statement: %w", err)
	}

	payload, err := extraction.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("serializing extraction: %w", err)
	}

	confidence := decimal.Zero
	if res.ParsingConfidence != nil {
		confidence = res.ParsingConfidence.Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &attemptOutcome{recon: recon, payload: payload, confidence: confidence}, nil
}

func (t *Task) complete(ctx context.Context, up *domain.StatementUpload, outcome *attemptOutcome, attempts int) (*Result, error) {
	log := logger.FromContext(ctx)

	up.MarkCompleted(outcome.payload, outcome.confidence)
	if err := t.uploads.UpdateUpload(ctx, up); err != nil {
		return nil, fmt.Errorf("ProcessUpload: persisting completion: %w", err)
	}

	t.metrics.StatementProcessed(StatusCompleted)
	if outcome.recon.Created {
		t.metrics.PositionCreated()
	}
	if outcome.recon.Updated {
		t.metrics.PositionUpdated()
	}

	log.Info().
		Int("attempts", attempts).
		Bool("created", outcome.recon.Created).
		Bool("updated", outcome.recon.Updated).
		Str("confidence", outcome.confidence.String()).
		Msg("Statement processed")

	return &Result{
		UploadID:     up.ID,
		Status:       StatusCompleted,
		Created:      outcome.recon.Created,
		Updated:      outcome.recon.Updated,
		HistoryCount: outcome.recon.HistoryCount,
		Confidence:   outcome.confidence,
		Attempts:     attempts,
	}, nil
}

func (t *Task) fail(ctx context.Context, up *domain.StatementUpload, message string, attempts int) (*Result, error) {
	up.MarkFailed(message)
	if err := t.uploads.UpdateUpload(ctx, up); err != nil {
		return nil, fmt.Errorf("ProcessUpload: persisting failure: %w", err)
	}

	t.metrics.StatementProcessed(StatusFailed)
	return &Result{
		UploadID: up.ID,
		Status:   StatusFailed,
		Message:  message,
		Attempts: attempts,
	}, nil
}

// isTerminal reports whether err can never succeed on retry: malformed
// model output, an account type nothing maps to, a missing source file, or
// credentials revoked mid-flight.
func isTerminal(err error) bool {
	var verr *extraction.ValidationError
	switch {
	case errors.As(err, &verr):
		return true
	case errors.Is(err, reconcile.ErrUnsupportedAccountType):
		return true
	case errors.Is(err, filestore.ErrNotExist):
		return true
	case errors.Is(err, extraction.ErrNotConfigured):
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
