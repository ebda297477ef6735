package gormstore

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/domain"
)

type uploadRow struct {
	ID              string           `gorm:"primaryKey;size:36"`
	UserID          string           `gorm:"size:64;index:idx_uploads_user,priority:1"`
	FileName        string           `gorm:"size:255"`
	FileRef         string           `gorm:"size:512"`
	UploadType      string           `gorm:"size:32"`
	Status          string           `gorm:"size:16;index:idx_uploads_status"`
	ParsedPayload   []byte           `gorm:"type:json"`
	ConfidenceScore *decimal.Decimal `gorm:"type:decimal(5,2)"`
	ErrorMessage    string           `gorm:"type:text"`
	UploadedAt      time.Time        `gorm:"autoCreateTime;index:idx_uploads_user,priority:2,sort:desc"`
	ProcessedAt     *time.Time
}

func (uploadRow) TableName() string { return "statement_uploads" }

type positionRow struct {
	ID             string           `gorm:"primaryKey;size:36"`
	UserID         string           `gorm:"size:64;uniqueIndex:idx_position_identity"`
	Kind           string           `gorm:"size:10;uniqueIndex:idx_position_identity"`
	Subtype        string           `gorm:"size:32;uniqueIndex:idx_position_identity"`
	Institution    string           `gorm:"size:191;uniqueIndex:idx_position_identity"`
	AccountNumber  string           `gorm:"size:64;uniqueIndex:idx_position_identity"`
	Name           string           `gorm:"size:255"`
	Value          decimal.Decimal  `gorm:"type:decimal(15,2)"`
	CurrencyCode   string           `gorm:"size:3"`
	CreditLimit    *decimal.Decimal `gorm:"type:decimal(15,2)"`
	MonthlyPayment *decimal.Decimal `gorm:"type:decimal(10,2)"`
	PaymentDueDay  *int
	IsActive       bool
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (positionRow) TableName() string { return "positions" }

type historyRow struct {
	ID           string          `gorm:"primaryKey;size:36"`
	PositionID   string          `gorm:"size:36;index:idx_history_position,priority:1"`
	Value        decimal.Decimal `gorm:"type:decimal(15,2)"`
	CurrencyCode string          `gorm:"size:3"`
	Source       string          `gorm:"size:32"`
	RecordedAt   time.Time       `gorm:"autoCreateTime;index:idx_history_position,priority:2,sort:desc"`
}

func (historyRow) TableName() string { return "position_history" }

type currencyRow struct {
	Code     string `gorm:"primaryKey;size:3"`
	Name     string `gorm:"size:100"`
	Symbol   string `gorm:"size:10"`
	IsActive bool
}

func (currencyRow) TableName() string { return "currencies" }

type rateRow struct {
	ID       uint            `gorm:"primaryKey;autoIncrement"`
	FromCode string          `gorm:"size:3;uniqueIndex:idx_rate_pair_day"`
	ToCode   string          `gorm:"size:3;uniqueIndex:idx_rate_pair_day"`
	Day      time.Time       `gorm:"type:date;uniqueIndex:idx_rate_pair_day"`
	Rate     decimal.Decimal `gorm:"type:decimal(20,10)"`
	Source   string          `gorm:"size:64"`
}

func (rateRow) TableName() string { return "exchange_rates" }

func uploadToRow(up *domain.StatementUpload) *uploadRow {
	return &uploadRow{
		ID:              up.ID,
		UserID:          up.UserID,
		FileName:        up.FileName,
		FileRef:         up.FileRef,
		UploadType:      string(up.UploadType),
		Status:          string(up.Status),
		ParsedPayload:   up.ParsedPayload,
		ConfidenceScore: up.ConfidenceScore,
		ErrorMessage:    up.ErrorMessage,
		UploadedAt:      up.UploadedAt,
		ProcessedAt:     up.ProcessedAt,
	}
}

func rowToUpload(r *uploadRow) *domain.StatementUpload {
	return &domain.StatementUpload{
		ID:              r.ID,
		UserID:          r.UserID,
		FileName:        r.FileName,
		FileRef:         r.FileRef,
		UploadType:      domain.UploadType(r.UploadType),
		Status:          domain.UploadStatus(r.Status),
		ParsedPayload:   r.ParsedPayload,
		ConfidenceScore: r.ConfidenceScore,
		ErrorMessage:    r.ErrorMessage,
		UploadedAt:      r.UploadedAt,
		ProcessedAt:     r.ProcessedAt,
	}
}

func positionToRow(p *domain.Position) *positionRow {
	return &positionRow{
		ID:             p.ID,
		UserID:         p.UserID,
		Kind:           string(p.Kind),
		Subtype:        p.Subtype,
		Institution:    p.Institution,
		AccountNumber:  p.AccountNumber,
		Name:           p.Name,
		Value:          p.Value,
		CurrencyCode:   p.CurrencyCode,
		CreditLimit:    p.CreditLimit,
		MonthlyPayment: p.MonthlyPayment,
		PaymentDueDay:  p.PaymentDueDay,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func rowToPosition(r *positionRow) *domain.Position {
	return &domain.Position{
		ID:             r.ID,
		UserID:         r.UserID,
		Kind:           domain.PositionKind(r.Kind),
		Subtype:        r.Subtype,
		Institution:    r.Institution,
		AccountNumber:  r.AccountNumber,
		Name:           r.Name,
		Value:          r.Value,
		CurrencyCode:   r.CurrencyCode,
		CreditLimit:    r.CreditLimit,
		MonthlyPayment: r.MonthlyPayment,
		PaymentDueDay:  r.PaymentDueDay,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func historyToRow(e *domain.HistoryEntry) *historyRow {
	return &historyRow{
		ID:           e.ID,
		PositionID:   e.PositionID,
		Value:        e.Value,
		CurrencyCode: e.CurrencyCode,
		Source:       string(e.Source),
		RecordedAt:   e.RecordedAt,
	}
}

func rowToHistory(r *historyRow) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		ID:           r.ID,
		PositionID:   r.PositionID,
		Value:        r.Value,
		CurrencyCode: r.CurrencyCode,
		Source:       domain.HistorySource(r.Source),
		RecordedAt:   r.RecordedAt,
	}
}

func currencyToRow(c *domain.Currency) *currencyRow {
	return &currencyRow{Code: c.Code, Name: c.Name, Symbol: c.Symbol, IsActive: c.IsActive}
}

func rowToCurrency(r *currencyRow) *domain.Currency {
	return &domain.Currency{Code: r.Code, Name: r.Name, Symbol: r.Symbol, IsActive: r.IsActive}
}

func rateToRow(x *domain.ExchangeRate) *rateRow {
	return &rateRow{
		FromCode: x.FromCode,
		ToCode:   x.ToCode,
		Day:      x.Day.In(time.UTC),
		Rate:     x.Rate,
		Source:   x.Source,
	}
}

func rowToRate(r *rateRow) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		FromCode: r.FromCode,
		ToCode:   r.ToCode,
		Day:      civil.DateOf(r.Day),
		Rate:     r.Rate,
		Source:   r.Source,
	}
}
