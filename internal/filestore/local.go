package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Local stores files under a root directory on disk. Refs are paths
// relative to the root, always with forward slashes.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("NewLocal: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	ref := objectRef(filename, time.Now())
	full := filepath.Join(l.root, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("Save: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("Save: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("Save: writing %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("Save: closing %s: %w", ref, err)
	}
	return ref, nil
}

func (l *Local) Fetch(_ context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(ref)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Fetch: %s: %w", ref, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("Fetch: %s: %w", ref, err)
	}
	return data, nil
}
