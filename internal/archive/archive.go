// Package archive keeps an audit trail of extraction runs in BigQuery: one
// row per pipeline attempt plus the raw model output. Recording is best
// effort; the pipeline logs archive failures and moves on.
package archive

import (
	"context"
	"encoding/json"
	"time"
)

// Run statuses. RUNNING rows without a finish timestamp belong to attempts
// that died mid-flight.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Run is one recorded extraction attempt.
type Run struct {
	RunID         string     `json:"run_id"`
	UploadID      string     `json:"upload_id"`
	UserID        string     `json:"user_id"`
	ParserType    string     `json:"parser_type"`
	ParserVersion string     `json:"parser_version"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Sink records extraction runs. Implementations must be safe for concurrent
// use by multiple workers.
type Sink interface {
	// StartRun records a new RUNNING attempt and returns its run ID.
	StartRun(ctx context.Context, uploadID, userID string) (string, error)
	// StoreOutput attaches the raw model payload to a run.
	StoreOutput(ctx context.Context, runID, uploadID string, raw json.RawMessage) error
	// FinishRun closes a run with a terminal status and optional message.
	FinishRun(ctx context.Context, runID, status, message string) error
	// RecentRuns returns the newest runs, most recent first.
	RecentRuns(ctx context.Context, limit int) ([]*Run, error)
}

// NopSink discards everything. Used when no archive project is configured.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) StartRun(context.Context, string, string) (string, error) { return "", nil }

func (NopSink) StoreOutput(context.Context, string, string, json.RawMessage) error { return nil }

func (NopSink) FinishRun(context.Context, string, string, string) error { return nil }

func (NopSink) RecentRuns(context.Context, int) ([]*Run, error) { return nil, nil }

// truncateMessage keeps stored error messages at a sane size.
func truncateMessage(msg string) string {
	const maxLen = 2000
	if len(msg) > maxLen {
		return msg[:maxLen]
	}
	return msg
}
