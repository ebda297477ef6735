// Package store defines the persistence boundary. Implementations live in
// subpackages: memstore for tests and single-process runs, gormstore for
// MySQL.
package store

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/networth-labs/tracker/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when an insert violates a uniqueness
	// constraint, e.g. losing a position create race. Callers treat it as
	// transient; a retry re-reads the winner's row.
	ErrConflict = errors.New("store: conflict")
)

// UploadFilter narrows ListUploads. Zero fields match everything.
type UploadFilter struct {
	UserID string
	Status domain.UploadStatus
	Limit  int
	Offset int
}

// UploadStore persists statement uploads. Lists come back newest first.
type UploadStore interface {
	CreateUpload(ctx context.Context, up *domain.StatementUpload) error
	GetUpload(ctx context.Context, id string) (*domain.StatementUpload, error)
	UpdateUpload(ctx context.Context, up *domain.StatementUpload) error
	ListUploads(ctx context.Context, filter UploadFilter) ([]*domain.StatementUpload, error)
}

// PositionStore persists positions and their value history. Mutating a
// position and appending history are separate operations on purpose:
// statement reconciliation appends exactly one entry per upload itself
// instead of relying on save-time hooks.
type PositionStore interface {
	FindPosition(ctx context.Context, key domain.PositionKey) (*domain.Position, error)
	GetPosition(ctx context.Context, id string) (*domain.Position, error)
	CreatePosition(ctx context.Context, pos *domain.Position) error
	UpdatePosition(ctx context.Context, pos *domain.Position) error
	ListPositions(ctx context.Context, userID string) ([]*domain.Position, error)

	AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error
	ListHistory(ctx context.Context, positionID string) ([]*domain.HistoryEntry, error)
}

// CurrencyStore persists currency reference rows.
type CurrencyStore interface {
	// GetOrCreateCurrency returns the existing row for cur.Code or creates
	// cur as given. The bool reports whether a row was created.
	GetOrCreateCurrency(ctx context.Context, cur *domain.Currency) (*domain.Currency, bool, error)
	ListCurrencies(ctx context.Context) ([]*domain.Currency, error)
}

// RateStore persists daily exchange rates keyed by (from, to, day).
type RateStore interface {
	UpsertRate(ctx context.Context, rate *domain.ExchangeRate) error
	GetRate(ctx context.Context, from, to string, day civil.Date) (*domain.ExchangeRate, error)
}

// Store is the full persistence surface the application wires once.
type Store interface {
	UploadStore
	PositionStore
	CurrencyStore
	RateStore
}
