// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront-wallet/internal/domain"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// CreateWallet adds a new wallet to the database.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWalletByUserID retrieves a wallet by its owner's user ID.
	GetWalletByUserID(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// GetWalletByUserIDForUpdate retrieves a wallet and row-locks it for the
	// duration of the surrounding transaction. All balance mutations must go
	// through this lock so concurrent operations on one user serialize.
	GetWalletByUserIDForUpdate(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// SetWalletBalance overwrites the wallet balance. Callers must hold the
	// row lock taken by GetWalletByUserIDForUpdate.
	SetWalletBalance(ctx context.Context, q DBExecutor, walletID int64, balance decimal.Decimal) error
	// SetWalletCurrency atomically re-denominates the wallet: new preferred
	// currency and converted balance in a single write.
	SetWalletCurrency(ctx context.Context, q DBExecutor, walletID int64, currency string, balance decimal.Decimal) error
}
