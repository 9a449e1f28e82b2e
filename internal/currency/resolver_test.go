// internal/currency/resolver_test.go
package currency

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-wallet/internal/domain"
	"storefront-wallet/internal/repository"
	"storefront-wallet/internal/util"
)

// fakeProvider returns canned rate tables and counts calls.
type fakeProvider struct {
	rates map[string]domain.RateTable
	err   error
	calls int
}

func (p *fakeProvider) FetchRates(ctx context.Context, base string) (domain.RateTable, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	rates, ok := p.rates[base]
	if !ok {
		return nil, errors.New("no rates for base")
	}
	return rates, nil
}

// fakeRateStore is an in-memory repository.RateRepository.
type fakeRateStore struct {
	rates     map[string]domain.RateTable
	insertErr error
	inserted  map[string]domain.RateTable
}

func (s *fakeRateStore) InsertRates(ctx context.Context, q repository.DBExecutor, base string, rates domain.RateTable, fetchedAt time.Time) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.inserted == nil {
		s.inserted = make(map[string]domain.RateTable)
	}
	s.inserted[base] = rates
	return nil
}

func (s *fakeRateStore) LatestRates(ctx context.Context, q repository.DBExecutor, base string) (domain.RateTable, error) {
	return s.rates[base], nil
}

func (s *fakeRateStore) CountOlderThan(ctx context.Context, q repository.DBExecutor, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeRateStore) DeleteOlderThan(ctx context.Context, q repository.DBExecutor, cutoff time.Time) (int64, error) {
	return 0, nil
}

// fakeClock is an adjustable clock for cache TTL tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newOfflineResolver(store repository.RateRepository) *Resolver {
	return NewResolver(nil, store, nil, false, time.Second, time.Hour, nil, nil)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestConvertSameCurrencyRoundsHalfUp(t *testing.T) {
	r := newOfflineResolver(nil)
	ctx := context.Background()

	cases := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"}, // half rounds up, not to even
		{"10.004", "10"},
		{"9.995", "10"},
		{"0.004", "0"},
		{"12.34", "12.34"},
	}
	for _, tc := range cases {
		got, err := r.Convert(ctx, dec(t, tc.in), "USD", "USD")
		assert.NoError(t, err)
		assert.True(t, dec(t, tc.want).Equal(got), "Convert(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestConvertUsesStaticFallbackDeterministically(t *testing.T) {
	r := newOfflineResolver(nil)

	got, err := r.Convert(context.Background(), dec(t, "10"), "USD", "EUR")
	assert.NoError(t, err)
	assert.True(t, dec(t, "9.20").Equal(got), "10 USD -> EUR = %s, want 9.20", got)
}

func TestConvertDerivedBaseFromStaticTable(t *testing.T) {
	r := newOfflineResolver(nil)

	// 41 UAH through the derived table (USD rate = 1/41) must come back to 1.00.
	got, err := r.Convert(context.Background(), dec(t, "41"), "UAH", "USD")
	assert.NoError(t, err)
	assert.True(t, dec(t, "1.00").Equal(got), "41 UAH -> USD = %s, want 1.00", got)
}

func TestConvertPivotsThroughUSDWhenDirectRateMissing(t *testing.T) {
	// Persisted rates for UAH exist but lack the USD target, forcing the
	// pivot path; USD itself has no persisted rates so the static table
	// supplies both legs.
	store := &fakeRateStore{rates: map[string]domain.RateTable{
		"UAH": {"EUR": dec(t, "0.0224")},
	}}
	r := newOfflineResolver(store)

	got, err := r.Convert(context.Background(), dec(t, "41"), "UAH", "USD")
	assert.NoError(t, err)
	assert.True(t, dec(t, "1.00").Equal(got), "41 UAH -> USD via pivot = %s, want 1.00", got)
}

func TestConvertDegradesToIdentityWhenNoRateUsable(t *testing.T) {
	r := newOfflineResolver(nil)

	got, err := r.Convert(context.Background(), dec(t, "7.777"), "USD", "XXX")
	assert.ErrorIs(t, err, util.ErrRateUnavailable)
	assert.True(t, dec(t, "7.78").Equal(got), "identity fallback = %s, want 7.78", got)
}

func TestConvertUnsupportedBaseFailsSoft(t *testing.T) {
	r := newOfflineResolver(nil)

	// An unknown base degrades to the USD static table rather than failing.
	got, err := r.Convert(context.Background(), dec(t, "5"), "XXX", "EUR")
	assert.NoError(t, err)
	assert.True(t, dec(t, "4.60").Equal(got))
}

func TestGetRatesCachesWithinTTL(t *testing.T) {
	provider := &fakeProvider{rates: map[string]domain.RateTable{
		"USD": {"EUR": dec(t, "0.90"), "GBP": dec(t, "0.80")},
	}}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	r := NewResolver(provider, nil, nil, true, time.Second, time.Hour, clock.Now, nil)
	ctx := context.Background()

	rates, source := r.GetRates(ctx, "USD")
	assert.Equal(t, SourceLive, source)
	assert.True(t, dec(t, "0.90").Equal(rates["EUR"]))
	assert.Equal(t, 1, provider.calls)

	_, source = r.GetRates(ctx, "USD")
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, 1, provider.calls, "cached lookup must not hit the provider")

	clock.Advance(time.Hour + time.Minute)
	_, source = r.GetRates(ctx, "USD")
	assert.Equal(t, SourceLive, source)
	assert.Equal(t, 2, provider.calls, "expired cache entry must refetch")
}

func TestGetRatesFiltersUnsupportedCurrencies(t *testing.T) {
	provider := &fakeProvider{rates: map[string]domain.RateTable{
		"USD": {"EUR": dec(t, "0.90"), "XAU": dec(t, "0.0005"), "BTC": dec(t, "0.00001")},
	}}
	r := NewResolver(provider, nil, nil, true, time.Second, time.Hour, nil, nil)

	rates, source := r.GetRates(context.Background(), "USD")
	assert.Equal(t, SourceLive, source)
	assert.Len(t, rates, 1)
	assert.Contains(t, rates, "EUR")
}

func TestGetRatesFallsBackToStoredOnFetchFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	store := &fakeRateStore{rates: map[string]domain.RateTable{
		"USD": {"EUR": dec(t, "0.93")},
	}}
	r := NewResolver(provider, store, nil, true, time.Second, time.Hour, nil, nil)

	rates, source := r.GetRates(context.Background(), "USD")
	assert.Equal(t, SourceStored, source)
	assert.True(t, dec(t, "0.93").Equal(rates["EUR"]))
}

func TestGetRatesFallsBackToStaticWhenNothingElse(t *testing.T) {
	provider := &fakeProvider{err: errors.New("timeout")}
	r := NewResolver(provider, &fakeRateStore{}, nil, true, time.Second, time.Hour, nil, nil)

	rates, source := r.GetRates(context.Background(), "USD")
	assert.Equal(t, SourceStatic, source)
	assert.True(t, dec(t, "0.92").Equal(rates["EUR"]))
}

func TestGetRatesPersistsSnapshotBestEffort(t *testing.T) {
	provider := &fakeProvider{rates: map[string]domain.RateTable{
		"EUR": {"USD": dec(t, "1.08")},
	}}
	store := &fakeRateStore{}
	r := NewResolver(provider, store, nil, true, time.Second, time.Hour, nil, nil)

	_, source := r.GetRates(context.Background(), "EUR")
	assert.Equal(t, SourceLive, source)
	require.Contains(t, store.inserted, "EUR")
	assert.True(t, dec(t, "1.08").Equal(store.inserted["EUR"]["USD"]))
}

func TestGetRatesSucceedsWhenPersistenceFails(t *testing.T) {
	provider := &fakeProvider{rates: map[string]domain.RateTable{
		"EUR": {"USD": dec(t, "1.08")},
	}}
	store := &fakeRateStore{insertErr: errors.New("disk full")}
	r := NewResolver(provider, store, nil, true, time.Second, time.Hour, nil, nil)

	rates, source := r.GetRates(context.Background(), "EUR")
	assert.Equal(t, SourceLive, source)
	assert.True(t, dec(t, "1.08").Equal(rates["USD"]))
}

func TestOfflineResolverPrefersStoredOverStatic(t *testing.T) {
	store := &fakeRateStore{rates: map[string]domain.RateTable{
		"USD": {"EUR": dec(t, "0.95")},
	}}
	r := newOfflineResolver(store)

	rates, source := r.GetRates(context.Background(), "USD")
	assert.Equal(t, SourceStored, source)
	assert.True(t, dec(t, "0.95").Equal(rates["EUR"]))
}

func TestHTTPProviderFetchRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR", r.URL.Query().Get("base"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.08,"GBP":0.85}}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, time.Second)
	rates, err := p.FetchRates(context.Background(), "EUR")
	require.NoError(t, err)
	assert.True(t, dec(t, "1.08").Equal(rates["USD"]))
	assert.True(t, dec(t, "0.85").Equal(rates["GBP"]))
}

func TestHTTPProviderMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, time.Second)
	_, err := p.FetchRates(context.Background(), "USD")
	assert.Error(t, err)
}

func TestHTTPProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, time.Second)
	_, err := p.FetchRates(context.Background(), "USD")
	assert.Error(t, err)
}

func TestHTTPProviderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"rates":{"EUR":0.9}}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 20*time.Millisecond)
	_, err := p.FetchRates(context.Background(), "USD")
	assert.Error(t, err)
}

func TestSupportedSet(t *testing.T) {
	assert.True(t, IsSupported("USD"))
	assert.True(t, IsSupported("PLN"))
	assert.False(t, IsSupported("BTC"))
	assert.Len(t, Supported(), 10)
}
