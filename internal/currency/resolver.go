// internal/currency/resolver.go

// Package currency implements exchange rate resolution with layered
// fallback and decimal money conversion.
//
// Rates for a base currency are resolved in tiers, first success wins:
// in-memory TTL cache, live provider fetch (when enabled), most recent
// persisted snapshots, static USD-relative table. Conversion never fails:
// when no usable rate exists it degrades to the identity conversion and
// reports the degradation through a typed error the caller may log.
package currency

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"storefront-wallet/internal/domain"
	"storefront-wallet/internal/repository"
	"storefront-wallet/internal/util"
)

// Source identifies which tier produced a rate table.
type Source string

const (
	SourceCache  Source = "cache"
	SourceLive   Source = "live"
	SourceStored Source = "stored"
	SourceStatic Source = "static"
)

// Converter is the read-only conversion contract consumed by the ledger and
// by display logic.
type Converter interface {
	// Convert converts amount from one currency to another, quantized to 2
	// decimal places. On total rate resolution failure it returns the
	// identity-converted (merely quantized) amount together with
	// util.ErrRateUnavailable; it never returns a zero value on degradation.
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Resolver resolves exchange rates through the tiered fallback chain.
type Resolver struct {
	provider     Provider
	store        repository.RateRepository
	db           repository.DBExecutor
	cache        *rateCache
	fetchEnabled bool
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewResolver creates a Resolver. provider and store may be nil, which
// disables the live and persisted tiers respectively. now is the clock used
// for cache expiry; pass nil for time.Now.
func NewResolver(
	provider Provider,
	store repository.RateRepository,
	dbExec repository.DBExecutor,
	fetchEnabled bool,
	fetchTimeout time.Duration,
	cacheTTL time.Duration,
	now func() time.Time,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider:     provider,
		store:        store,
		db:           dbExec,
		cache:        newRateCache(cacheTTL, now),
		fetchEnabled: fetchEnabled,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// GetRates returns the rate table for base, filtered to the supported
// currency set, and the tier that produced it. It never returns an error to
// honor the fail-soft contract; the static table is the last resort even for
// an unsupported base.
func (r *Resolver) GetRates(ctx context.Context, base string) (domain.RateTable, Source) {
	if rates, ok := r.cache.get(base); ok {
		return rates, SourceCache
	}

	if !r.fetchEnabled {
		if rates, ok := r.storedRates(ctx, base); ok {
			r.cache.set(base, rates)
			return rates, SourceStored
		}
		return staticRates(base), SourceStatic
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	if rates, err := r.fetchLive(fetchCtx, base); err != nil {
		r.logger.Warn("live rate fetch failed", "base", base, "error", err)
	} else {
		return rates, SourceLive
	}

	if rates, ok := r.storedRates(ctx, base); ok {
		r.cache.set(base, rates)
		return rates, SourceStored
	}
	return staticRates(base), SourceStatic
}

// fetchLive calls the provider, filters the response to the supported set,
// caches it and persists the snapshot best-effort.
func (r *Resolver) fetchLive(ctx context.Context, base string) (domain.RateTable, error) {
	if r.provider == nil {
		return nil, util.ErrRateUnavailable
	}
	raw, err := r.provider.FetchRates(ctx, base)
	if err != nil {
		return nil, err
	}
	filtered := make(domain.RateTable, len(raw))
	for code, rate := range raw {
		if IsSupported(code) {
			filtered[code] = rate
		}
	}
	if len(filtered) == 0 {
		return nil, util.ErrRateUnavailable
	}

	r.cache.set(base, filtered)

	// Persistence failure must not fail the lookup.
	if r.store != nil {
		if err := r.store.InsertRates(ctx, r.db, base, filtered, time.Now().UTC()); err != nil {
			r.logger.Warn("failed to persist rate snapshot", "base", base, "error", err)
		}
	}
	return filtered, nil
}

// storedRates reads the most recent persisted rate per target for base.
func (r *Resolver) storedRates(ctx context.Context, base string) (domain.RateTable, bool) {
	if r.store == nil {
		return nil, false
	}
	rates, err := r.store.LatestRates(ctx, r.db, base)
	if err != nil {
		r.logger.Warn("failed to read persisted rates", "base", base, "error", err)
		return nil, false
	}
	filtered := make(domain.RateTable, len(rates))
	for code, rate := range rates {
		if IsSupported(code) {
			filtered[code] = rate
		}
	}
	if len(filtered) == 0 {
		return nil, false
	}
	return filtered, true
}

// Refresh forces a provider fetch for base, bypassing the cache and the
// fetch-enabled flag, and persists the snapshot. Used by the rate sync tool.
func (r *Resolver) Refresh(ctx context.Context, base string) (domain.RateTable, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	return r.fetchLive(fetchCtx, base)
}

// Convert implements Converter.
func (r *Resolver) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return Quantize(amount), nil
	}

	rates, _ := r.GetRates(ctx, from)
	if rate, ok := rates[to]; ok {
		return Quantize(amount.Mul(rate)), nil
	}

	// Direct rate missing (e.g. a partial persisted set): pivot through USD.
	usdRates, _ := r.GetRates(ctx, USD)
	rateFrom, okFrom := usdRates[from]
	rateTo, okTo := usdRates[to]
	if okFrom && okTo && !rateFrom.IsZero() {
		return Quantize(amount.Div(rateFrom).Mul(rateTo)), nil
	}

	return Quantize(amount), util.ErrRateUnavailable
}
