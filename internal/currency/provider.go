// internal/currency/provider.go
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"storefront-wallet/internal/domain"
)

// Provider fetches a rate table for a base currency from an external source.
type Provider interface {
	FetchRates(ctx context.Context, base string) (domain.RateTable, error)
}

// HTTPProvider calls an exchangerate.host-style JSON endpoint:
//
//	GET {baseURL}?base=EUR -> {"base": "EUR", "rates": {"USD": 1.08, ...}}
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider with the given endpoint and per-request
// timeout. The timeout is enforced on the HTTP client so a slow provider can
// never stall the calling request beyond it.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRates requests the latest rates for base.
func (p *HTTPProvider) FetchRates(ctx context.Context, base string) (domain.RateTable, error) {
	reqURL := fmt.Sprintf("%s?base=%s", p.baseURL, url.QueryEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate provider returned no rates for %s", base)
	}

	table := make(domain.RateTable, len(body.Rates))
	for code, rate := range body.Rates {
		table[code] = rate
	}
	return table, nil
}
