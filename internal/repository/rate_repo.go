// internal/repository/rate_repo.go
package repository

import (
	"context"
	"time"

	"storefront-wallet/internal/domain"
)

// RateRepository defines the interface for persisted exchange rate snapshots.
type RateRepository interface {
	// InsertRates stores one snapshot row per (base, target) pair.
	InsertRates(ctx context.Context, q DBExecutor, base string, rates domain.RateTable, fetchedAt time.Time) error
	// LatestRates returns the most recent persisted rate per target currency
	// for the given base. The result may be partial or empty.
	LatestRates(ctx context.Context, q DBExecutor, base string) (domain.RateTable, error)
	// CountOlderThan counts snapshot rows fetched before cutoff.
	CountOlderThan(ctx context.Context, q DBExecutor, cutoff time.Time) (int64, error)
	// DeleteOlderThan removes snapshot rows fetched before cutoff and returns
	// the number of rows deleted.
	DeleteOlderThan(ctx context.Context, q DBExecutor, cutoff time.Time) (int64, error)
}
