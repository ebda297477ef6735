// Package memstore is the in-memory store implementation, used by tests,
// the one-shot CLI and development runs without MySQL.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/store"
)

type rateKey struct {
	from string
	to   string
	day  civil.Date
}

// Store keeps everything in maps guarded by one RWMutex. Values are copied
// on the way in and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	uploads    map[string]*domain.StatementUpload
	positions  map[string]*domain.Position
	positionID map[domain.PositionKey]string
	history    map[string][]*domain.HistoryEntry
	currencies map[string]*domain.Currency
	rates      map[rateKey]*domain.ExchangeRate
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		uploads:    make(map[string]*domain.StatementUpload),
		positions:  make(map[string]*domain.Position),
		positionID: make(map[domain.PositionKey]string),
		history:    make(map[string][]*domain.HistoryEntry),
		currencies: make(map[string]*domain.Currency),
		rates:      make(map[rateKey]*domain.ExchangeRate),
	}
}

func (s *Store) CreateUpload(_ context.Context, up *domain.StatementUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.uploads[up.ID]; exists {
		return fmt.Errorf("CreateUpload: upload %s: %w", up.ID, store.ErrConflict)
	}
	if up.UploadedAt.IsZero() {
		up.UploadedAt = time.Now()
	}
	cp := *up
	s.uploads[up.ID] = &cp
	return nil
}

func (s *Store) GetUpload(_ context.Context, id string) (*domain.StatementUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	up, ok := s.uploads[id]
	if !ok {
		return nil, fmt.Errorf("GetUpload: upload %s: %w", id, store.ErrNotFound)
	}
	cp := *up
	return &cp, nil
}

func (s *Store) UpdateUpload(_ context.Context, up *domain.StatementUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[up.ID]; !ok {
		return fmt.Errorf("UpdateUpload: upload %s: %w", up.ID, store.ErrNotFound)
	}
	cp := *up
	s.uploads[up.ID] = &cp
	return nil
}

func (s *Store) ListUploads(_ context.Context, filter store.UploadFilter) ([]*domain.StatementUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.StatementUpload, 0, len(s.uploads))
	for _, up := range s.uploads {
		if filter.UserID != "" && up.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && up.Status != filter.Status {
			continue
		}
		cp := *up
		out = append(out, &cp)
	}

	// Newest first, ID as tiebreak so the order is stable.
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domain.StatementUpload{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) FindPosition(_ context.Context, key domain.PositionKey) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.positionID[key]
	if !ok {
		return nil, fmt.Errorf("FindPosition: %w", store.ErrNotFound)
	}
	cp := *s.positions[id]
	return &cp, nil
}

func (s *Store) GetPosition(_ context.Context, id string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("GetPosition: position %s: %w", id, store.ErrNotFound)
	}
	cp := *pos
	return &cp, nil
}

func (s *Store) CreatePosition(_ context.Context, pos *domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pos.Key()
	if _, exists := s.positionID[key]; exists {
		return fmt.Errorf("CreatePosition: %s / %s: %w", pos.Institution, pos.Subtype, store.ErrConflict)
	}
	if _, exists := s.positions[pos.ID]; exists {
		return fmt.Errorf("CreatePosition: position %s: %w", pos.ID, store.ErrConflict)
	}

	now := time.Now()
	pos.CreatedAt = now
	pos.UpdatedAt = now
	cp := *pos
	s.positions[cp.ID] = &cp
	s.positionID[key] = cp.ID
	return nil
}

func (s *Store) UpdatePosition(_ context.Context, pos *domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.positions[pos.ID]
	if !ok {
		return fmt.Errorf("UpdatePosition: position %s: %w", pos.ID, store.ErrNotFound)
	}

	// The identifying tuple is immutable through updates.
	pos.CreatedAt = stored.CreatedAt
	pos.UpdatedAt = time.Now()
	cp := *pos
	s.positions[pos.ID] = &cp
	return nil
}

func (s *Store) ListPositions(_ context.Context, userID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Position, 0)
	for _, pos := range s.positions {
		if userID != "" && pos.UserID != userID {
			continue
		}
		cp := *pos
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) AppendHistory(_ context.Context, entry *domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[entry.PositionID]; !ok {
		return fmt.Errorf("AppendHistory: position %s: %w", entry.PositionID, store.ErrNotFound)
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	cp := *entry
	s.history[entry.PositionID] = append(s.history[entry.PositionID], &cp)
	return nil
}

func (s *Store) ListHistory(_ context.Context, positionID string) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[positionID]
	out := make([]*domain.HistoryEntry, 0, len(entries))
	// Entries append chronologically; walk backwards for newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		cp := *entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) GetOrCreateCurrency(_ context.Context, cur *domain.Currency) (*domain.Currency, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.currencies[cur.Code]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *cur
	s.currencies[cur.Code] = &cp
	out := cp
	return &out, true, nil
}

func (s *Store) ListCurrencies(_ context.Context) ([]*domain.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Currency, 0, len(s.currencies))
	for _, cur := range s.currencies {
		cp := *cur
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) UpsertRate(_ context.Context, rate *domain.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rate
	s.rates[rateKey{from: rate.FromCode, to: rate.ToCode, day: rate.Day}] = &cp
	return nil
}

func (s *Store) GetRate(_ context.Context, from, to string, day civil.Date) (*domain.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, ok := s.rates[rateKey{from: from, to: to, day: day}]
	if !ok {
		return nil, fmt.Errorf("GetRate: %s/%s on %s: %w", from, to, day, store.ErrNotFound)
	}
	cp := *rate
	return &cp, nil
}
