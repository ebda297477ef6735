// Package gormstore is the MySQL store implementation.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/store"
)

// Store persists everything in MySQL through gorm. TranslateError maps
// driver duplicate-key errors onto gorm.ErrDuplicatedKey, which translate
// turns into store.ErrConflict; the position identity index does the
// create-race arbitration.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("Open: connect: %w", err)
	}
	if err := db.AutoMigrate(&uploadRow{}, &positionRow{}, &historyRow{}, &currencyRow{}, &rateRow{}); err != nil {
		return nil, fmt.Errorf("Open: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return sqlDB.Close()
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) CreateUpload(ctx context.Context, up *domain.StatementUpload) error {
	row := uploadToRow(up)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate("CreateUpload", err)
	}
	up.UploadedAt = row.UploadedAt
	return nil
}

func (s *Store) GetUpload(ctx context.Context, id string) (*domain.StatementUpload, error) {
	var row uploadRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("GetUpload", err)
	}
	return rowToUpload(&row), nil
}

func (s *Store) UpdateUpload(ctx context.Context, up *domain.StatementUpload) error {
	if err := s.db.WithContext(ctx).Save(uploadToRow(up)).Error; err != nil {
		return translate("UpdateUpload", err)
	}
	return nil
}

func (s *Store) ListUploads(ctx context.Context, filter store.UploadFilter) ([]*domain.StatementUpload, error) {
	q := s.db.WithContext(ctx).Model(&uploadRow{}).Order("uploaded_at DESC, id DESC")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []uploadRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate("ListUploads", err)
	}
	out := make([]*domain.StatementUpload, len(rows))
	for i := range rows {
		out[i] = rowToUpload(&rows[i])
	}
	return out, nil
}

func (s *Store) FindPosition(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	var row positionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND subtype = ? AND institution = ? AND account_number = ?",
			key.UserID, string(key.Kind), key.Subtype, key.Institution, key.AccountNumber).
		First(&row).Error
	if err != nil {
		return nil, translate("FindPosition", err)
	}
	return rowToPosition(&row), nil
}

func (s *Store) GetPosition(ctx context.Context, id string) (*domain.Position, error) {
	var row positionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("GetPosition", err)
	}
	return rowToPosition(&row), nil
}

func (s *Store) CreatePosition(ctx context.Context, pos *domain.Position) error {
	row := positionToRow(pos)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate("CreatePosition", err)
	}
	pos.CreatedAt = row.CreatedAt
	pos.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) UpdatePosition(ctx context.Context, pos *domain.Position) error {
	row := positionToRow(pos)
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return translate("UpdatePosition", err)
	}
	pos.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) ListPositions(ctx context.Context, userID string) ([]*domain.Position, error) {
	q := s.db.WithContext(ctx).Model(&positionRow{}).Order("created_at DESC, id DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var rows []positionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate("ListPositions", err)
	}
	out := make([]*domain.Position, len(rows))
	for i := range rows {
		out[i] = rowToPosition(&rows[i])
	}
	return out, nil
}

func (s *Store) AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error {
	row := historyToRow(entry)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate("AppendHistory", err)
	}
	entry.RecordedAt = row.RecordedAt
	return nil
}

func (s *Store) ListHistory(ctx context.Context, positionID string) ([]*domain.HistoryEntry, error) {
	var rows []historyRow
	err := s.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("recorded_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("ListHistory", err)
	}
	out := make([]*domain.HistoryEntry, len(rows))
	for i := range rows {
		out[i] = rowToHistory(&rows[i])
	}
	return out, nil
}

func (s *Store) GetOrCreateCurrency(ctx context.Context, cur *domain.Currency) (*domain.Currency, bool, error) {
	var row currencyRow
	err := s.db.WithContext(ctx).First(&row, "code = ?", cur.Code).Error
	if err == nil {
		return rowToCurrency(&row), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, translate("GetOrCreateCurrency", err)
	}

	row = *currencyToRow(cur)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		// Lost a concurrent create; the winner's row is the answer.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var winner currencyRow
			if err2 := s.db.WithContext(ctx).First(&winner, "code = ?", cur.Code).Error; err2 == nil {
				return rowToCurrency(&winner), false, nil
			}
		}
		return nil, false, translate("GetOrCreateCurrency", err)
	}
	return rowToCurrency(&row), true, nil
}

func (s *Store) ListCurrencies(ctx context.Context) ([]*domain.Currency, error) {
	var rows []currencyRow
	if err := s.db.WithContext(ctx).Order("code").Find(&rows).Error; err != nil {
		return nil, translate("ListCurrencies", err)
	}
	out := make([]*domain.Currency, len(rows))
	for i := range rows {
		out[i] = rowToCurrency(&rows[i])
	}
	return out, nil
}

func (s *Store) UpsertRate(ctx context.Context, rate *domain.ExchangeRate) error {
	row := rateToRow(rate)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_code"}, {Name: "to_code"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source"}),
	}).Create(row).Error
	if err != nil {
		return translate("UpsertRate", err)
	}
	return nil
}

func (s *Store) GetRate(ctx context.Context, from, to string, day civil.Date) (*domain.ExchangeRate, error) {
	var row rateRow
	err := s.db.WithContext(ctx).
		Where("from_code = ? AND to_code = ? AND day = ?", from, to, day.In(time.UTC)).
		First(&row).Error
	if err != nil {
		return nil, translate("GetRate", err)
	}
	return rowToRate(&row), nil
}
