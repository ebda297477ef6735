// Package rates refreshes daily exchange rates from an external quote API
// into the rate store.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// DefaultEndpoint serves unauthenticated latest quotes per base currency.
const DefaultEndpoint = "https://open.er-api.com/v6/latest"

// Quote is one set of rates against a base currency.
type Quote struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// Fetcher pulls latest quotes over HTTP. A circuit breaker sits in front of
// the endpoint so a flapping provider fails fast instead of tying up
// refresh calls.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
}

// NewFetcher creates a fetcher against baseURL (DefaultEndpoint when empty).
func NewFetcher(httpClient *http.Client, baseURL string) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultEndpoint
	}
	return &Fetcher{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "exchange-rates",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
		}),
	}
}

// latestResponse is the provider's wire shape. Rates decode as json.Number
// so quotes keep their full precision on the way into decimal.
type latestResponse struct {
	Result    string                 `json:"result"`
	ErrorType string                 `json:"error-type"`
	BaseCode  string                 `json:"base_code"`
	Rates     map[string]json.Number `json:"rates"`
}

// Latest fetches the current quote set for the base currency.
func (f *Fetcher) Latest(ctx context.Context, base string) (*Quote, error) {
	out, err := f.cb.Execute(func() (any, error) {
		return f.fetch(ctx, base)
	})
	if err != nil {
		return nil, fmt.Errorf("Latest: %w", err)
	}
	return out.(*Quote), nil
}

func (f *Fetcher) fetch(ctx context.Context, base string) (*Quote, error) {
	url := fmt.Sprintf("%s/%s", f.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var body latestResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding rate response: %w", err)
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("rate API result %q (%s)", body.Result, body.ErrorType)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate API returned no rates for %s", base)
	}

	quote := &Quote{Base: body.BaseCode, Rates: make(map[string]decimal.Decimal, len(body.Rates))}
	if quote.Base == "" {
		quote.Base = base
	}
	for code, raw := range body.Rates {
		rate, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		quote.Rates[code] = rate
	}
	return quote, nil
}
