package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

func TestFetcher_Latest(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"result": "success",
			"base_code": "USD",
			"rates": {"USD": 1, "EUR": 0.9176, "GBP": 0.7905}
		}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL)
	quote, err := f.Latest(context.Background(), "USD")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if gotPath != "/USD" {
		t.Errorf("request path = %q, want /USD", gotPath)
	}
	if quote.Base != "USD" {
		t.Errorf("Base = %q, want USD", quote.Base)
	}
	if len(quote.Rates) != 3 {
		t.Fatalf("Rates has %d entries, want 3", len(quote.Rates))
	}
	if !quote.Rates["EUR"].Equal(decimal.RequireFromString("0.9176")) {
		t.Errorf("EUR rate = %s, want 0.9176", quote.Rates["EUR"])
	}
	if !quote.Rates["USD"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("USD rate = %s, want 1", quote.Rates["USD"])
	}
}

func TestFetcher_Latest_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result": "error", "error-type": "unsupported-code"}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL)
	_, err := f.Latest(context.Background(), "ZZZ")
	if err == nil {
		t.Fatal("Latest() succeeded, want provider error")
	}
	if !strings.Contains(err.Error(), "unsupported-code") {
		t.Errorf("error = %v, want error-type included", err)
	}
}

func TestFetcher_Latest_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL)
	_, err := f.Latest(context.Background(), "USD")
	if err == nil {
		t.Fatal("Latest() succeeded, want status error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error = %v, want status code included", err)
	}
}

func TestFetcher_Latest_EmptyRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result": "success", "base_code": "USD", "rates": {}}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL)
	if _, err := f.Latest(context.Background(), "USD"); err == nil {
		t.Fatal("Latest() succeeded, want empty-rates error")
	}
}

func TestFetcher_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL)
	for i := 0; i < 5; i++ {
		if _, err := f.Latest(context.Background(), "USD"); err == nil {
			t.Fatalf("Latest() call %d succeeded, want failure", i+1)
		}
	}

	before := hits.Load()
	_, err := f.Latest(context.Background(), "USD")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Latest() error = %v, want circuit open", err)
	}
	if hits.Load() != before {
		t.Error("open circuit still reached the provider")
	}
}
