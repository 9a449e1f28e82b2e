// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Wallet holds a user's balance, denominated in the user's preferred
// currency. The balance is mutated only through ledger operations; a change
// of preferred currency re-denominates the balance in place.
type Wallet struct {
	ID                int64           `db:"id" json:"id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	PreferredCurrency string          `db:"preferred_currency" json:"preferred_currency"`
	Balance           decimal.Decimal `db:"balance" json:"balance"` // NUMERIC(12, 2) in DB
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWallet creates a new Wallet instance with a zero balance.
func NewWallet(userID int64, preferredCurrency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:            userID,
		PreferredCurrency: preferredCurrency,
		Balance:           decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
