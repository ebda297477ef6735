package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Currency is a reference row for an ISO-4217 style code. Codes created on
// the fly from statements get the code as both name and symbol until a
// human fills them in.
type Currency struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	IsActive bool   `json:"is_active"`
}

// PositionKey is the identifying tuple for a position. Two uploads that
// describe the same real-world account must resolve to the same key.
type PositionKey struct {
	UserID        string
	Kind          PositionKind
	Subtype       string
	Institution   string
	AccountNumber string
}

// Position is a single tracked asset or liability. Value is kept at two
// decimal places; statement reconciliation and manual edits both round
// before persisting.
type Position struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Kind          PositionKind    `json:"kind"`
	Subtype       string          `json:"subtype"`
	Name          string          `json:"name"`
	Institution   string          `json:"institution"`
	AccountNumber string          `json:"account_number"`
	Value         decimal.Decimal `json:"value"`
	CurrencyCode  string          `json:"currency_code"`

	// Credit card fields, nil for everything else.
	CreditLimit    *decimal.Decimal `json:"credit_limit,omitempty"`
	MonthlyPayment *decimal.Decimal `json:"monthly_payment,omitempty"`
	PaymentDueDay  *int             `json:"payment_due_day,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the identifying tuple for this position.
func (p *Position) Key() PositionKey {
	return PositionKey{
		UserID:        p.UserID,
		Kind:          p.Kind,
		Subtype:       p.Subtype,
		Institution:   p.Institution,
		AccountNumber: p.AccountNumber,
	}
}

// HistoryEntry is one point on a position's value timeline. Entries are
// append-only; reconciliation writes one per statement upload regardless
// of whether the value moved.
type HistoryEntry struct {
	ID           string          `json:"id"`
	PositionID   string          `json:"position_id"`
	Value        decimal.Decimal `json:"value"`
	CurrencyCode string          `json:"currency_code"`
	Source       HistorySource   `json:"source"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// ExchangeRate is one quoted rate for a currency pair on a given day.
type ExchangeRate struct {
	FromCode string          `json:"from_code"`
	ToCode   string          `json:"to_code"`
	Rate     decimal.Decimal `json:"rate"`
	Day      civil.Date      `json:"day"`
	Source   string          `json:"source"`
}
