// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionKind classifies a wallet mutation.
type TransactionKind string

const (
	TransactionKindTopUp          TransactionKind = "topup"
	TransactionKindPurchaseDeduct TransactionKind = "purchase_deduct"
	TransactionKindManualAdjust   TransactionKind = "manual_adjust"
	TransactionKindRefund         TransactionKind = "refund"
)

// Valid reports whether k is one of the known transaction kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindTopUp, TransactionKindPurchaseDeduct, TransactionKindManualAdjust, TransactionKindRefund:
		return true
	}
	return false
}

// WalletTransaction is an immutable, append-only record of one balance
// mutation.
//
// Amount is signed (positive = credit, negative = debit) and is always
// denominated in Currency, which equals the wallet's preferred currency at
// the time of writing. SourceAmount/SourceCurrency keep the caller-supplied
// pre-conversion figures when a currency conversion occurred. BalanceAfter
// snapshots the balance immediately after the mutation; replaying Amount
// values in creation order must reproduce it at every row.
type WalletTransaction struct {
	ID             int64            `db:"id" json:"id"`
	UserID         int64            `db:"user_id" json:"user_id"`
	Amount         decimal.Decimal  `db:"amount" json:"amount"`
	Currency       string           `db:"currency" json:"currency"`
	SourceAmount   *decimal.Decimal `db:"source_amount" json:"source_amount,omitempty"`
	SourceCurrency *string          `db:"source_currency" json:"source_currency,omitempty"`
	Kind           TransactionKind  `db:"kind" json:"kind"`
	BalanceAfter   decimal.Decimal  `db:"balance_after" json:"balance_after"`
	Description    string           `db:"description" json:"description"`
	Reference      *string          `db:"reference" json:"reference,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// NewWalletTransaction creates a new WalletTransaction instance.
func NewWalletTransaction(
	userID int64,
	amount decimal.Decimal,
	currency string,
	sourceAmount *decimal.Decimal,
	sourceCurrency *string,
	kind TransactionKind,
	balanceAfter decimal.Decimal,
	description string,
	reference *string,
) *WalletTransaction {
	return &WalletTransaction{
		UserID:         userID,
		Amount:         amount,
		Currency:       currency,
		SourceAmount:   sourceAmount,
		SourceCurrency: sourceCurrency,
		Kind:           kind,
		BalanceAfter:   balanceAfter,
		Description:    description,
		Reference:      reference,
		CreatedAt:      time.Now().UTC(),
	}
}

// TransactionFilter narrows a transaction history query.
type TransactionFilter struct {
	Kind TransactionKind
	From *time.Time
	To   *time.Time
}
