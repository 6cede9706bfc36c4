// Package fx fetches and caches monthly exchange-rate snapshots from the
// external rate provider. One snapshot is fetched per distinct as-of month in
// a working set, never per ledger row.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Snapshot is one month's rate table as served by the provider. Rates are
// quoted against Base: one unit of the keyed currency equals that many units
// of Base.
type Snapshot struct {
	Base  core.CurrencyCode                    `json:"base"`
	Month core.MonthKey                        `json:"month"`
	AsOf  time.Time                            `json:"as_of"`
	Rates map[core.CurrencyCode]decimal.Decimal `json:"rates"`
}

// Provider looks up the rate snapshot for an as-of month.
type Provider interface {
	MonthlyRates(ctx context.Context, month core.MonthKey) (*Snapshot, error)
}

// HTTPProvider fetches snapshots from the rate service's JSON API.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider against the given base URL, e.g.
// "https://rates.internal".
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// MonthlyRates fetches GET {base}/v1/rates/{month}.
func (p *HTTPProvider) MonthlyRates(ctx context.Context, month core.MonthKey) (*Snapshot, error) {
	url := fmt.Sprintf("%s/v1/rates/%s", p.baseURL, month)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", month, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates for %s: unexpected status %s", month, resp.Status)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode rates for %s: %w", month, err)
	}
	if snap.Month == "" {
		snap.Month = month
	}
	return &snap, nil
}
