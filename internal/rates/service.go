package rates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/store"
)

const rateSource = "exchangerate-api"

// Quoter is the slice of Fetcher the service needs.
type Quoter interface {
	Latest(ctx context.Context, base string) (*Quote, error)
}

// RefreshResult reports what one refresh run stored.
type RefreshResult struct {
	Base          string     `json:"base"`
	Day           civil.Date `json:"day"`
	Rates         int        `json:"rates"`
	NewCurrencies int        `json:"new_currencies"`
}

// Service stores the latest quote set for the base currency, one rate row
// per quoted code for today.
type Service struct {
	quoter     Quoter
	currencies store.CurrencyStore
	rates      store.RateStore
	base       string
}

// NewService builds a refresh service. base defaults to USD.
func NewService(quoter Quoter, currencies store.CurrencyStore, rates store.RateStore, base string) *Service {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = "USD"
	}
	return &Service{quoter: quoter, currencies: currencies, rates: rates, base: base}
}

// Refresh fetches the latest quotes and upserts today's rate per currency.
// Currencies seen for the first time get a reference row with the code as
// name and symbol. Re-running on the same day overwrites, so the call is
// safe to repeat.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	log := logger.FromContext(ctx)

	quote, err := s.quoter.Latest(ctx, s.base)
	if err != nil {
		return nil, fmt.Errorf("Refresh: %w", err)
	}

	day := civil.DateOf(time.Now().UTC())
	out := &RefreshResult{Base: quote.Base, Day: day}

	codes := make([]string, 0, len(quote.Rates))
	for code := range quote.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		_, created, err := s.currencies.GetOrCreateCurrency(ctx, &domain.Currency{
			Code:     code,
			Name:     code,
			Symbol:   code,
			IsActive: true,
		})
		if err != nil {
			return nil, fmt.Errorf("Refresh: currency %s: %w", code, err)
		}
		if created {
			out.NewCurrencies++
		}

		// The provider quotes the base against itself at 1; no row needed.
		if code == quote.Base {
			continue
		}

		rate := &domain.ExchangeRate{
			FromCode: quote.Base,
			ToCode:   code,
			Rate:     quote.Rates[code],
			Day:      day,
			Source:   rateSource,
		}
		if err := s.rates.UpsertRate(ctx, rate); err != nil {
			return nil, fmt.Errorf("Refresh: rate %s/%s: %w", quote.Base, code, err)
		}
		out.Rates++
	}

	log.Info().
		Str("base", out.Base).
		Int("rates", out.Rates).
		Int("new_currencies", out.NewCurrencies).
		Msg("Exchange rates refreshed")
	return out, nil
}
