// Package positions is the manual-entry path for positions. Unlike the
// statement path, saves here tag their history entries MANUAL.
package positions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/store"
)

// ErrInvalidInput is returned when a create or revalue request fails validation.
var ErrInvalidInput = errors.New("invalid position input")

// Service creates and revalues positions on behalf of the HTTP API.
type Service struct {
	positions       store.PositionStore
	currencies      store.CurrencyStore
	defaultCurrency string
}

// NewService builds a service. defaultCurrency applies when a request omits
// the currency code; empty falls back to USD.
func NewService(positions store.PositionStore, currencies store.CurrencyStore, defaultCurrency string) *Service {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Service{
		positions:       positions,
		currencies:      currencies,
		defaultCurrency: strings.ToUpper(defaultCurrency),
	}
}

// CreateInput is a manual position creation request.
type CreateInput struct {
	UserID        string
	Kind          domain.PositionKind
	Subtype       string
	Name          string
	Institution   string
	AccountNumber string
	Value         decimal.Decimal
	CurrencyCode  string

	CreditLimit    *decimal.Decimal
	MonthlyPayment *decimal.Decimal
	PaymentDueDay  *int
}

func (in *CreateInput) validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	case !domain.ValidSubtype(in.Kind, in.Subtype):
		return fmt.Errorf("%w: unknown subtype %q for kind %q", ErrInvalidInput, in.Subtype, in.Kind)
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Value.IsNegative():
		return fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
	case in.PaymentDueDay != nil && (*in.PaymentDueDay < 1 || *in.PaymentDueDay > 31):
		return fmt.Errorf("%w: payment due day %d out of range", ErrInvalidInput, *in.PaymentDueDay)
	}
	return nil
}

// Create stores a new position and appends one MANUAL history entry for the
// opening value.
func (s *Service) Create(ctx context.Context, in *CreateInput) (*domain.Position, error) {
	log := logger.FromContext(ctx)

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	code := strings.ToUpper(strings.TrimSpace(in.CurrencyCode))
	if code == "" {
		code = s.defaultCurrency
	}
	currency, _, err := s.currencies.GetOrCreateCurrency(ctx, &domain.Currency{
		Code:     code,
		Name:     code,
		Symbol:   code,
		IsActive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("Create: resolving currency %s: %w", code, err)
	}

	pos := &domain.Position{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		Kind:           in.Kind,
		Subtype:        in.Subtype,
		Name:           strings.TrimSpace(in.Name),
		Institution:    strings.TrimSpace(in.Institution),
		AccountNumber:  strings.TrimSpace(in.AccountNumber),
		Value:          in.Value.Round(2),
		CurrencyCode:   currency.Code,
		CreditLimit:    in.CreditLimit,
		MonthlyPayment: in.MonthlyPayment,
		PaymentDueDay:  in.PaymentDueDay,
		IsActive:       true,
	}
	if err := s.positions.CreatePosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	entry := &domain.HistoryEntry{
		ID:           uuid.NewString(),
		PositionID:   pos.ID,
		Value:        pos.Value,
		CurrencyCode: pos.CurrencyCode,
		Source:       domain.SourceManual,
	}
	if err := s.positions.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("Create: appending history: %w", err)
	}

	log.Info().
		Str("user_id", pos.UserID).
		Str("position_id", pos.ID).
		Str("subtype", pos.Subtype).
		Str("value", pos.Value.String()).
		Msg("Created position manually")
	return pos, nil
}

// SetValue revalues a position by hand. A MANUAL history entry is appended
// only when the stored value actually moves at two decimal places.
func (s *Service) SetValue(ctx context.Context, positionID string, value decimal.Decimal) (*domain.Position, error) {
	log := logger.FromContext(ctx)

	if value.IsNegative() {
		return nil, fmt.Errorf("SetValue: %w: value must not be negative", ErrInvalidInput)
	}

	pos, err := s.positions.GetPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("SetValue: %w", err)
	}

	rounded := value.Round(2)
	if pos.Value.Round(2).Equal(rounded) {
		return pos, nil
	}

	previous := pos.Value
	pos.Value = rounded
	if err := s.positions.UpdatePosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("SetValue: %w", err)
	}

	entry := &domain.HistoryEntry{
		ID:           uuid.NewString(),
		PositionID:   pos.ID,
		Value:        rounded,
		CurrencyCode: pos.CurrencyCode,
		Source:       domain.SourceManual,
	}
	if err := s.positions.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("SetValue: appending history: %w", err)
	}

	log.Info().
		Str("position_id", pos.ID).
		Str("previous_value", previous.String()).
		Str("value", rounded.String()).
		Msg("Revalued position manually")
	return pos, nil
}
