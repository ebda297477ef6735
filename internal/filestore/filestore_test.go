package filestore

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestObjectRef(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	ref := objectRef("january statement.pdf", now)
	if !strings.HasPrefix(ref, "statements/2024/01/15/") {
		t.Errorf("objectRef() = %s, want statements/2024/01/15/ prefix", ref)
	}
	if !strings.HasSuffix(ref, "-january_statement.pdf") {
		t.Errorf("objectRef() = %s, want sanitized filename suffix", ref)
	}

	uuidPattern := regexp.MustCompile(`^statements/2024/01/15/[0-9a-f-]{36}-january_statement\.pdf$`)
	if !uuidPattern.MatchString(ref) {
		t.Errorf("objectRef() = %s, want uuid-prefixed object name", ref)
	}

	// Path components in the input must not escape the date folder.
	ref = objectRef("../../etc/passwd", now)
	if strings.Contains(ref, "..") {
		t.Errorf("objectRef() = %s, retains path traversal", ref)
	}
}

func TestObjectRef_Unique(t *testing.T) {
	now := time.Now()
	if objectRef("statement.pdf", now) == objectRef("statement.pdf", now) {
		t.Error("objectRef() returned the same ref twice for the same name")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"statement.pdf", "application/pdf"},
		{"statement.PDF", "application/pdf"},
		{"scan.png", "image/png"},
		{"scan.jpg", "image/jpeg"},
		{"scan.JPEG", "image/jpeg"},
		{"scan.gif", "image/gif"},
		{"scan.webp", "image/webp"},
		{"statement.docx", "application/pdf"},
		{"no_extension", "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectMIMEType(tt.filename); got != tt.want {
				t.Errorf("DetectMIMEType(%q) = %s, want %s", tt.filename, got, tt.want)
			}
		})
	}
}

func TestLocal_SaveAndFetch(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	content := []byte("%PDF-1.4 fake statement")
	ref, err := local.Save(ctx, "statement.pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(ref, "statements/") {
		t.Errorf("Save() ref = %s, want statements/ prefix", ref)
	}

	got, err := local.Fetch(ctx, ref)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Fetch() = %q, want %q", got, content)
	}
}

func TestLocal_FetchMissing(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	if _, err := local.Fetch(ctx, "statements/2024/01/15/nope.pdf"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Fetch() missing ref error = %v, want ErrNotExist", err)
	}
}

func TestParseGCSRef(t *testing.T) {
	tests := []struct {
		name       string
		ref        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{
			name:       "valid ref",
			ref:        "gs://statements-bucket/statements/2024/01/15/abc-file.pdf",
			wantBucket: "statements-bucket",
			wantObject: "statements/2024/01/15/abc-file.pdf",
		},
		{name: "missing scheme", ref: "statements-bucket/file.pdf", wantErr: true},
		{name: "no object path", ref: "gs://statements-bucket", wantErr: true},
		{name: "empty object", ref: "gs://statements-bucket/", wantErr: true},
		{name: "empty bucket", ref: "gs:///file.pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := parseGCSRef(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseGCSRef(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("parseGCSRef(%q) = (%s, %s), want (%s, %s)", tt.ref, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}
