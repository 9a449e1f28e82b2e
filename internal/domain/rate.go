// internal/domain/rate.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTable maps target currency codes to exchange rates relative to one
// base currency.
type RateTable map[string]decimal.Decimal

// RateRecord is a timestamped snapshot of one base->target conversion rate.
// Multiple records may exist per pair over time; the most recent by
// FetchedAt is authoritative for fallback lookups.
type RateRecord struct {
	ID        int64           `db:"id" json:"id"`
	Base      string          `db:"base" json:"base"`
	Target    string          `db:"target" json:"target"`
	Rate      decimal.Decimal `db:"rate" json:"rate"` // NUMERIC(18, 8) in DB
	FetchedAt time.Time       `db:"fetched_at" json:"fetched_at"`
}
