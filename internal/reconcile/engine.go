// Package reconcile maps one extraction result onto exactly one financial
// position: create it if the identifying tuple is new, update it if the
// balance moved, and always append one STATEMENT_UPLOAD history entry.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/store"
)

// ErrUnsupportedAccountType is returned for account types the engine has no
// position mapping for. The caller must not guess.
var ErrUnsupportedAccountType = errors.New("unsupported account type")

const (
	unknownBank   = "Unknown Bank"
	unknownLender = "Unknown Lender"
)

// Result reports what one reconciliation call did.
type Result struct {
	Created      bool             `json:"created"`
	Updated      bool             `json:"updated"`
	Position     *domain.Position `json:"position"`
	HistoryCount int              `json:"history_count"`
}

// Engine reconciles extraction results against the position store. Re-running
// the same extraction is safe: the position is found by its identifying tuple
// instead of created again, and only the audit history grows.
type Engine struct {
	positions       store.PositionStore
	currencies      store.CurrencyStore
	defaultCurrency string
}

// New builds an engine. defaultCurrency is used when a statement carries no
// currency code; empty falls back to USD.
func New(positions store.PositionStore, currencies store.CurrencyStore, defaultCurrency string) *Engine {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Engine{
		positions:       positions,
		currencies:      currencies,
		defaultCurrency: strings.ToUpper(defaultCurrency),
	}
}

// target is the position shape an account summary classifies into.
type target struct {
	kind        domain.PositionKind
	subtype     string
	institution string
	name        string
}

// Reconcile applies one extraction result to the user's positions and returns
// what changed. A lost create race surfaces the store's conflict error;
// callers treat it as transient and re-run, which then finds the winner's row.
func (e *Engine) Reconcile(ctx context.Context, userID string, res *extraction.Result) (*Result, error) {
	log := logger.FromContext(ctx)
	summary := res.AccountSummary

	currency, err := e.resolveCurrency(ctx, summary.Currency)
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	masked := strValue(summary.AccountNumberMasked)
	tgt, err := classify(summary, masked)
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	closing := decimal.Zero
	if summary.ClosingBalance != nil {
		closing = summary.ClosingBalance.Round(2)
	}

	key := domain.PositionKey{
		UserID:        userID,
		Kind:          tgt.kind,
		Subtype:       tgt.subtype,
		Institution:   tgt.institution,
		AccountNumber: masked,
	}

	out := &Result{HistoryCount: 1}

	pos, err := e.positions.FindPosition(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		pos = &domain.Position{
			ID:            uuid.NewString(),
			UserID:        userID,
			Kind:          tgt.kind,
			Subtype:       tgt.subtype,
			Name:          tgt.name,
			Institution:   tgt.institution,
			AccountNumber: masked,
			Value:         closing,
			CurrencyCode:  currency.Code,
			IsActive:      true,
		}
		if summary.AccountType == domain.AccountCreditCard {
			applyCardFields(pos, summary.CreditCardSummary)
		}
		if err := e.positions.CreatePosition(ctx, pos); err != nil {
			return nil, fmt.Errorf("Reconcile: creating position: %w", err)
		}
		out.Created = true
		log.Info().
			Str("user_id", userID).
			Str("position_id", pos.ID).
			Str("subtype", pos.Subtype).
			Str("institution", pos.Institution).
			Str("value", closing.String()).
			Msg("Created position from statement")

	case err != nil:
		return nil, fmt.Errorf("Reconcile: finding position: %w", err)

	default:
		if !pos.Value.Round(2).Equal(closing) {
			previous := pos.Value
			pos.Value = closing
			pos.CurrencyCode = currency.Code
			pos.IsActive = true
			if summary.AccountType == domain.AccountCreditCard {
				applyCardFields(pos, summary.CreditCardSummary)
			}
			if err := e.positions.UpdatePosition(ctx, pos); err != nil {
				return nil, fmt.Errorf("Reconcile: updating position: %w", err)
			}
			out.Updated = true
			log.Info().
				Str("user_id", userID).
				Str("position_id", pos.ID).
				Str("previous_value", previous.String()).
				Str("value", closing.String()).
				Msg("Updated position from statement")
		}
	}

	entry := &domain.HistoryEntry{
		ID:           uuid.NewString(),
		PositionID:   pos.ID,
		Value:        closing,
		CurrencyCode: currency.Code,
		Source:       domain.SourceStatementUpload,
	}
	if err := e.positions.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("Reconcile: appending history: %w", err)
	}

	out.Position = pos
	return out, nil
}

// resolveCurrency normalizes the statement currency (or the engine default)
// and makes sure a reference row exists. Rows created here carry the code as
// name and symbol until a human fills them in.
func (e *Engine) resolveCurrency(ctx context.Context, code *string) (*domain.Currency, error) {
	resolved := e.defaultCurrency
	if code != nil && strings.TrimSpace(*code) != "" {
		resolved = strings.ToUpper(strings.TrimSpace(*code))
	}
	cur, _, err := e.currencies.GetOrCreateCurrency(ctx, &domain.Currency{
		Code:     resolved,
		Name:     resolved,
		Symbol:   resolved,
		IsActive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving currency %s: %w", resolved, err)
	}
	return cur, nil
}

// classify maps the account type onto a position kind, subtype, institution
// and display name. Unknown types are rejected, never guessed.
func classify(summary extraction.AccountSummary, masked string) (target, error) {
	switch {
	case summary.AccountType == domain.AccountCreditCard:
		inst := strDefault(summary.InstitutionName, unknownBank)
		return target{
			kind:        domain.KindLiability,
			subtype:     string(domain.LiabilityCreditCard),
			institution: inst,
			name:        displayName(inst, masked),
		}, nil

	case summary.AccountType.IsLoan():
		inst := strDefault(summary.InstitutionName, unknownLender)
		name := displayName(inst, masked)
		return target{
			kind:        domain.KindLiability,
			subtype:     string(InferLoanType(inst, name)),
			institution: inst,
			name:        name,
		}, nil

	case summary.AccountType.IsDeposit():
		inst := strDefault(summary.InstitutionName, unknownBank)
		return target{
			kind:        domain.KindAsset,
			subtype:     string(domain.AssetCash),
			institution: inst,
			name:        displayName(inst+" "+summary.AccountType.DisplayName(), masked),
		}, nil
	}
	return target{}, fmt.Errorf("%w: %s", ErrUnsupportedAccountType, summary.AccountType)
}

// applyCardFields copies the credit-card statement block onto the position,
// each field only when the statement actually carried it.
func applyCardFields(pos *domain.Position, card *extraction.CreditCardSummary) {
	if card == nil {
		return
	}
	if card.CreditLimit != nil {
		limit := card.CreditLimit.Round(2)
		pos.CreditLimit = &limit
	}
	if card.MinimumPaymentDue != nil {
		payment := card.MinimumPaymentDue.Round(2)
		pos.MonthlyPayment = &payment
	}
	if card.PaymentDueDate != nil {
		day := card.PaymentDueDate.Day
		pos.PaymentDueDay = &day
	}
}

func displayName(base, masked string) string {
	if masked == "" {
		return base
	}
	return base + " - " + masked
}

func strDefault(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return strings.TrimSpace(*s)
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
