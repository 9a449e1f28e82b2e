// internal/repository/postgres/rate_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront-wallet/internal/domain"
	"storefront-wallet/internal/repository"
)

// RateRepository implements repository.RateRepository for PostgreSQL.
type RateRepository struct {
	// Stateless: methods receive a DBExecutor directly.
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(db *sqlx.DB) repository.RateRepository {
	return &RateRepository{}
}

// InsertRates stores one snapshot row per (base, target) pair.
func (r *RateRepository) InsertRates(ctx context.Context, q repository.DBExecutor, base string, rates domain.RateTable, fetchedAt time.Time) error {
	query := `INSERT INTO currency_rates (base, target, rate, fetched_at) VALUES ($1, $2, $3, $4)`
	for target, rate := range rates {
		if _, err := q.ExecContext(ctx, query, base, target, rate, fetchedAt); err != nil {
			return fmt.Errorf("failed to insert rate %s->%s: %w", base, target, err)
		}
	}
	return nil
}

// LatestRates returns the most recent persisted rate per target for base.
func (r *RateRepository) LatestRates(ctx context.Context, q repository.DBExecutor, base string) (domain.RateTable, error) {
	rows := []struct {
		Target string          `db:"target"`
		Rate   decimal.Decimal `db:"rate"`
	}{}
	query := `
		SELECT DISTINCT ON (target) target, rate
		FROM currency_rates
		WHERE base = $1
		ORDER BY target, fetched_at DESC`
	if err := q.SelectContext(ctx, &rows, query, base); err != nil {
		return nil, fmt.Errorf("failed to fetch latest rates for base %s: %w", base, err)
	}

	rates := make(domain.RateTable, len(rows))
	for _, row := range rows {
		rates[row.Target] = row.Rate
	}
	return rates, nil
}

// CountOlderThan counts snapshot rows fetched before cutoff.
func (r *RateRepository) CountOlderThan(ctx context.Context, q repository.DBExecutor, cutoff time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM currency_rates WHERE fetched_at < $1`
	if err := q.GetContext(ctx, &count, query, cutoff); err != nil {
		return 0, fmt.Errorf("failed to count stale currency rates: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes snapshot rows fetched before cutoff.
func (r *RateRepository) DeleteOlderThan(ctx context.Context, q repository.DBExecutor, cutoff time.Time) (int64, error) {
	query := `DELETE FROM currency_rates WHERE fetched_at < $1`
	result, err := q.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale currency rates: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted currency rate count: %w", err)
	}
	return deleted, nil
}
