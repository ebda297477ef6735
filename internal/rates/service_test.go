package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/store"
	"github.com/networth-labs/tracker/internal/store/memstore"
)

type fakeQuoter struct {
	latest func(ctx context.Context, base string) (*Quote, error)
}

func (f *fakeQuoter) Latest(ctx context.Context, base string) (*Quote, error) {
	return f.latest(ctx, base)
}

func staticQuote(base string, rates map[string]string) func(context.Context, string) (*Quote, error) {
	parsed := make(map[string]decimal.Decimal, len(rates))
	for code, raw := range rates {
		parsed[code] = decimal.RequireFromString(raw)
	}
	return func(context.Context, string) (*Quote, error) {
		return &Quote{Base: base, Rates: parsed}, nil
	}
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	quoter := &fakeQuoter{latest: staticQuote("USD", map[string]string{
		"USD": "1", "EUR": "0.9176", "GBP": "0.7905",
	})}
	svc := NewService(quoter, mem, mem, "usd")

	got, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got.Base != "USD" {
		t.Errorf("Base = %q, want USD", got.Base)
	}
	if got.Rates != 2 {
		t.Errorf("Rates = %d, want 2 (base itself is not stored)", got.Rates)
	}
	if got.NewCurrencies != 3 {
		t.Errorf("NewCurrencies = %d, want 3", got.NewCurrencies)
	}

	day := civil.DateOf(time.Now().UTC())
	rate, err := mem.GetRate(ctx, "USD", "EUR", day)
	if err != nil {
		t.Fatalf("GetRate() error = %v", err)
	}
	if !rate.Rate.Equal(decimal.RequireFromString("0.9176")) {
		t.Errorf("EUR rate = %s, want 0.9176", rate.Rate)
	}
	if rate.Source != "exchangerate-api" {
		t.Errorf("Source = %q, want exchangerate-api", rate.Source)
	}

	if _, err := mem.GetRate(ctx, "USD", "USD", day); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetRate(USD/USD) error = %v, want ErrNotFound", err)
	}

	currencies, err := mem.ListCurrencies(ctx)
	if err != nil {
		t.Fatalf("ListCurrencies() error = %v", err)
	}
	if len(currencies) != 3 {
		t.Errorf("ListCurrencies() returned %d rows, want 3", len(currencies))
	}
}

func TestService_Refresh_SecondRunOverwrites(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()

	quoter := &fakeQuoter{latest: staticQuote("USD", map[string]string{"USD": "1", "EUR": "0.90"})}
	svc := NewService(quoter, mem, mem, "USD")
	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	quoter.latest = staticQuote("USD", map[string]string{"USD": "1", "EUR": "0.95"})
	got, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if got.NewCurrencies != 0 {
		t.Errorf("NewCurrencies = %d, want 0 on rerun", got.NewCurrencies)
	}

	rate, err := mem.GetRate(ctx, "USD", "EUR", civil.DateOf(time.Now().UTC()))
	if err != nil {
		t.Fatalf("GetRate() error = %v", err)
	}
	if !rate.Rate.Equal(decimal.RequireFromString("0.95")) {
		t.Errorf("EUR rate = %s, want 0.95 after rerun", rate.Rate)
	}
}

func TestService_Refresh_FetchFailure(t *testing.T) {
	mem := memstore.New()
	quoter := &fakeQuoter{latest: func(context.Context, string) (*Quote, error) {
		return nil, errors.New("provider down")
	}}
	svc := NewService(quoter, mem, mem, "")

	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() succeeded, want fetch error")
	}
	currencies, err := mem.ListCurrencies(context.Background())
	if err != nil {
		t.Fatalf("ListCurrencies() error = %v", err)
	}
	if len(currencies) != 0 {
		t.Errorf("ListCurrencies() returned %d rows, want none after failed fetch", len(currencies))
	}
}
