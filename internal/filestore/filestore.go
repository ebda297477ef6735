// Package filestore stores uploaded statement documents and hands their
// bytes back to the pipeline. Refs are opaque to callers: a relative path
// for the local store, a gs:// URI for the GCS store.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Fetch when the ref points at nothing.
var ErrNotExist = errors.New("filestore: file does not exist")

// Store saves statement files and fetches them back by ref.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// objectRef builds the object path for a new file: a date-partitioned
// folder plus a uuid prefix so repeated uploads of the same filename never
// collide.
func objectRef(filename string, now time.Time) string {
	base := path.Base(filepath.ToSlash(filename))
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("statements/%04d/%02d/%02d/%s-%s",
		now.Year(), now.Month(), now.Day(), uuid.NewString(), base)
}

// DetectMIMEType maps a statement filename to the MIME type sent to the
// extraction backend. Unknown extensions are treated as PDF, by far the
// most common statement format.
func DetectMIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/pdf"
	}
}
