package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMarkProcessing(t *testing.T) {
	tests := []struct {
		name    string
		from    UploadStatus
		wantErr bool
	}{
		{name: "from pending", from: StatusPending, wantErr: false},
		{name: "from failed allows reprocess", from: StatusFailed, wantErr: false},
		{name: "from processing allows retry re-entry", from: StatusProcessing, wantErr: false},
		{name: "from completed rejected", from: StatusCompleted, wantErr: true},
		{name: "from reviewed rejected", from: StatusReviewed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &StatementUpload{ID: "u1", Status: tt.from}
			err := u.MarkProcessing()
			if (err != nil) != tt.wantErr {
				t.Fatalf("MarkProcessing() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && u.Status != StatusProcessing {
				t.Errorf("status = %s, want %s", u.Status, StatusProcessing)
			}
			if tt.wantErr && u.Status != tt.from {
				t.Errorf("status mutated on failed transition: %s", u.Status)
			}
		})
	}
}

func TestMarkCompleted(t *testing.T) {
	u := &StatementUpload{ID: "u1", Status: StatusPending}
	if err := u.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}

	payload := json.RawMessage(`{"account_summary":{"account_type":"CHECKING"}}`)
	u.MarkCompleted(payload, decimal.RequireFromString("92.50"))

	if u.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", u.Status, StatusCompleted)
	}
	if string(u.ParsedPayload) != string(payload) {
		t.Errorf("payload = %s, want %s", u.ParsedPayload, payload)
	}
	if u.ConfidenceScore == nil || !u.ConfidenceScore.Equal(decimal.RequireFromString("92.50")) {
		t.Errorf("confidence = %v, want 92.50", u.ConfidenceScore)
	}
	if u.ProcessedAt == nil {
		t.Error("ProcessedAt not set")
	}
}

func TestMarkCompleted_RoundsConfidence(t *testing.T) {
	u := &StatementUpload{ID: "u1", Status: StatusProcessing}
	u.MarkCompleted(nil, decimal.RequireFromString("87.125"))

	want := decimal.RequireFromString("87.13")
	if u.ConfidenceScore == nil || !u.ConfidenceScore.Equal(want) {
		t.Errorf("confidence = %v, want %s", u.ConfidenceScore, want)
	}
}

func TestMarkFailed(t *testing.T) {
	u := &StatementUpload{ID: "u1", Status: StatusProcessing}
	u.MarkFailed("File not found: statements/2026/01/02/missing.pdf")

	if u.Status != StatusFailed {
		t.Errorf("status = %s, want %s", u.Status, StatusFailed)
	}
	if u.ErrorMessage == "" {
		t.Error("error message not set")
	}
	if u.ProcessedAt == nil {
		t.Error("ProcessedAt not set")
	}
}

func TestMarkReviewed(t *testing.T) {
	tests := []struct {
		name    string
		from    UploadStatus
		wantErr bool
	}{
		{name: "from completed", from: StatusCompleted, wantErr: false},
		{name: "from pending rejected", from: StatusPending, wantErr: true},
		{name: "from processing rejected", from: StatusProcessing, wantErr: true},
		{name: "from failed rejected", from: StatusFailed, wantErr: true},
		{name: "from reviewed rejected", from: StatusReviewed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &StatementUpload{ID: "u1", Status: tt.from}
			err := u.MarkReviewed()
			if (err != nil) != tt.wantErr {
				t.Fatalf("MarkReviewed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && u.Status != StatusReviewed {
				t.Errorf("status = %s, want %s", u.Status, StatusReviewed)
			}
		})
	}
}

func TestUploadPredicates(t *testing.T) {
	tests := []struct {
		status         UploadStatus
		wantProcessed  bool
		wantSuccessful bool
	}{
		{StatusPending, false, false},
		{StatusProcessing, false, false},
		{StatusCompleted, true, true},
		{StatusFailed, true, false},
		{StatusReviewed, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			u := &StatementUpload{Status: tt.status}
			if got := u.IsProcessed(); got != tt.wantProcessed {
				t.Errorf("IsProcessed() = %v, want %v", got, tt.wantProcessed)
			}
			if got := u.IsSuccessful(); got != tt.wantSuccessful {
				t.Errorf("IsSuccessful() = %v, want %v", got, tt.wantSuccessful)
			}
		})
	}
}
