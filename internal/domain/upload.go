package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UploadStatus is the lifecycle state of a statement upload.
type UploadStatus string

const (
	StatusPending    UploadStatus = "PENDING"
	StatusProcessing UploadStatus = "PROCESSING"
	StatusCompleted  UploadStatus = "COMPLETED"
	StatusFailed     UploadStatus = "FAILED"
	StatusReviewed   UploadStatus = "REVIEWED"
)

// ParseUploadStatus returns the typed status and whether s is a known value.
func ParseUploadStatus(s string) (UploadStatus, bool) {
	st := UploadStatus(s)
	switch st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusReviewed:
		return st, true
	}
	return "", false
}

// ErrInvalidTransition is returned by transition methods when the current
// status does not permit the requested move.
var ErrInvalidTransition = errors.New("invalid status transition")

// StatementUpload tracks one uploaded document through extraction. The
// transition methods mutate the struct only; callers persist through a
// store afterwards.
type StatementUpload struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	FileName   string       `json:"file_name"`
	FileRef    string       `json:"file_ref"`
	UploadType UploadType   `json:"upload_type"`
	Status     UploadStatus `json:"status"`

	// ParsedPayload is the full extraction result, set on completion.
	ParsedPayload json.RawMessage `json:"parsed_payload,omitempty"`
	// ConfidenceScore is on the 0-100 scale, two decimal places.
	ConfidenceScore *decimal.Decimal `json:"confidence_score,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`

	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// MarkProcessing moves the upload into PROCESSING. Permitted from PENDING,
// FAILED (reprocess) and PROCESSING itself, since a retry re-runs the
// pipeline from the top while the record is already in flight.
func (u *StatementUpload) MarkProcessing() error {
	switch u.Status {
	case StatusPending, StatusFailed, StatusProcessing:
		u.Status = StatusProcessing
		return nil
	}
	return fmt.Errorf("MarkProcessing: %w: %s", ErrInvalidTransition, u.Status)
}

// MarkCompleted records a successful extraction: the serialized payload,
// the confidence score on the 0-100 scale (rounded to two places) and the
// processing timestamp.
func (u *StatementUpload) MarkCompleted(payload json.RawMessage, confidence decimal.Decimal) {
	now := time.Now()
	rounded := confidence.Round(2)
	u.Status = StatusCompleted
	u.ParsedPayload = payload
	u.ConfidenceScore = &rounded
	u.ProcessedAt = &now
}

// MarkFailed records a terminal failure with a human-readable message.
func (u *StatementUpload) MarkFailed(message string) {
	now := time.Now()
	u.Status = StatusFailed
	u.ErrorMessage = message
	u.ProcessedAt = &now
}

// MarkReviewed flags a completed upload as human-verified.
func (u *StatementUpload) MarkReviewed() error {
	if u.Status != StatusCompleted {
		return fmt.Errorf("MarkReviewed: %w: %s", ErrInvalidTransition, u.Status)
	}
	u.Status = StatusReviewed
	return nil
}

// IsProcessed reports whether the pipeline has finished with this upload,
// successfully or not.
func (u *StatementUpload) IsProcessed() bool {
	switch u.Status {
	case StatusCompleted, StatusFailed, StatusReviewed:
		return true
	}
	return false
}

// IsSuccessful reports whether extraction produced a usable result.
func (u *StatementUpload) IsSuccessful() bool {
	return u.Status == StatusCompleted || u.Status == StatusReviewed
}
