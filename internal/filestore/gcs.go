package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCS stores files in a Cloud Storage bucket. Refs are full gs:// URIs so
// a record keeps working even if the configured bucket changes later.
// Assumes Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket string
}

var _ Store = (*GCS)(nil)

// NewGCS builds a store around a shared storage client.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: creating storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	object := objectRef(filename, time.Now())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Save: copying to gs://%s/%s: %w", g.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Save: finalizing gs://%s/%s: %w", g.bucket, object, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, object), nil
}

func (g *GCS) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, object, err := parseGCSRef(ref)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("Fetch: %s: %w", ref, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("Fetch: opening %s: %w", ref, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading %s: %w", ref, err)
	}
	return data, nil
}

// parseGCSRef splits gs://bucket/path/to/object into its parts.
func parseGCSRef(ref string) (bucket, object string, err error) {
	if !strings.HasPrefix(ref, "gs://") {
		return "", "", fmt.Errorf("invalid GCS ref: %s", ref)
	}
	parts := strings.SplitN(strings.TrimPrefix(ref, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS ref (no object path): %s", ref)
	}
	return parts[0], parts[1], nil
}
