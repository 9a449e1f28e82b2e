// internal/repository/transaction_repo.go
package repository

import (
	"context"

	"storefront-wallet/internal/domain"
)

// TransactionRepository defines the interface for wallet transaction log
// operations. Records are append-only: there is no update or delete.
type TransactionRepository interface {
	// CreateTransaction appends a new transaction record using the provided DBExecutor.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.WalletTransaction) error
	// GetTransactionsByUserID retrieves filtered, paginated transaction
	// history for a user, newest first, along with the total matching count.
	GetTransactionsByUserID(ctx context.Context, q DBExecutor, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.WalletTransaction, int64, error)
	// ReferenceExists reports whether a transaction with the given reference
	// code has already been recorded for the user.
	ReferenceExists(ctx context.Context, q DBExecutor, userID int64, reference string) (bool, error)
}
