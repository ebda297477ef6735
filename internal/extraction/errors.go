package extraction

import (
	"errors"
	"strings"
)

var (
	// ErrNotConfigured means the model credentials are absent. The caller
	// decides whether that is fatal; the client itself never retries.
	ErrNotConfigured = errors.New("extraction client not configured")

	// ErrEmptyResponse means the model returned no text at all.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrUnusableResponse means the model text did not contain a parseable
	// JSON document. Distinct from ValidationError: the document never got
	// far enough to be checked against the contract.
	ErrUnusableResponse = errors.New("unusable model response")
)

// FieldError pinpoints a single contract violation by field path, e.g.
// "account_summary.currency" or "transactions[2].amount".
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationError aggregates every violation found in one document so a
// failed upload reports all offending fields at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether a violation was recorded for the exact path.
func (e *ValidationError) Has(path string) bool {
	for _, f := range e.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}
