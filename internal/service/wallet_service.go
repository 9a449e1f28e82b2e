// internal/service/wallet_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"storefront-wallet/internal/currency"
	"storefront-wallet/internal/domain"
	"storefront-wallet/internal/repository"
	"storefront-wallet/internal/util"
	"storefront-wallet/pkg/db"
)

// WalletService is the wallet ledger: every balance mutation goes through it
// and leaves an append-only transaction record. Each mutation runs in one
// database transaction holding a row lock on the wallet, so the balance
// update and the log append commit or roll back together and concurrent
// operations on one user serialize.
type WalletService interface {
	// Credit adds amount to the user's balance. Amounts in a foreign
	// currency are converted into the wallet's preferred currency first;
	// conversion failure degrades to treating the amount as already
	// denominated in the preferred currency. A non-nil reference rejects
	// duplicates (idempotent top-up).
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, currencyCode string, kind domain.TransactionKind, description string, reference *string) (*domain.Wallet, *domain.WalletTransaction, error)
	// Debit subtracts amount from the user's balance with the same currency
	// handling as Credit. Unless allowNegative is set, a debit that would
	// drive the balance negative fails with util.ErrInsufficientFunds and
	// mutates nothing.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, currencyCode string, allowNegative bool, kind domain.TransactionKind, description string, reference *string) (*domain.Wallet, *domain.WalletTransaction, error)
	// ChangePreferredCurrency re-denominates the balance into newCurrency.
	// A unit change, not a monetary event: no transaction record is written.
	ChangePreferredCurrency(ctx context.Context, userID int64, newCurrency string) (*domain.Wallet, error)
	// MinTopUp returns the minimum accepted top-up in currencyCode (the
	// equivalent of 1 USD).
	MinTopUp(ctx context.Context, currencyCode string) decimal.Decimal
	GetBalance(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetTransactionHistory(ctx context.Context, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.WalletTransaction, int64, error)
	CreateUserAndWallet(ctx context.Context, username, currencyCode string) (*domain.User, *domain.Wallet, error)
}

// walletService implements the WalletService interface.
type walletService struct {
	dbBeginner      db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor      repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	userRepo        repository.UserRepository
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	converter       currency.Converter
	beginTx         db.BeginTxFunc
	commitTx        db.CommitTxFunc
	rollbackTx      db.RollbackTxFunc
	logger          *slog.Logger
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	userRepo repository.UserRepository,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	converter currency.Converter,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	logger *slog.Logger,
) WalletService {
	if logger == nil {
		logger = slog.Default()
	}
	return &walletService{
		dbBeginner:      dbBeginner,
		dbExecutor:      dbExecutor,
		userRepo:        userRepo,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		converter:       converter,
		beginTx:         beginTx,
		commitTx:        commitTx,
		rollbackTx:      rollbackTx,
		logger:          logger,
	}
}

// toPreferred converts amount into the wallet's preferred currency. When the
// source currency already matches, or the rate resolution degraded to the
// identity conversion, converted is false and source fields stay empty on
// the resulting transaction.
func (s *walletService) toPreferred(ctx context.Context, wallet *domain.Wallet, amount decimal.Decimal, currencyCode string) (decimal.Decimal, bool) {
	if currencyCode == "" || currencyCode == wallet.PreferredCurrency {
		return currency.Quantize(amount), false
	}
	converted, err := s.converter.Convert(ctx, amount, currencyCode, wallet.PreferredCurrency)
	if err != nil {
		// Fail soft: charge/credit the unconverted amount rather than block.
		s.logger.Warn("currency conversion degraded to identity",
			"from", currencyCode, "to", wallet.PreferredCurrency, "amount", amount, "error", err)
		return converted, false
	}
	return converted, true
}

// Credit adds money to a user's wallet.
func (s *walletService) Credit(ctx context.Context, userID int64, amount decimal.Decimal, currencyCode string, kind domain.TransactionKind, description string, reference *string) (*domain.Wallet, *domain.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, util.ErrInvalidAmount
	}
	if currencyCode != "" && !currency.IsSupported(currencyCode) {
		return nil, nil, util.ErrUnsupportedCurrency
	}
	if kind == "" {
		kind = domain.TransactionKindTopUp
	}
	if !kind.Valid() {
		return nil, nil, util.ErrInvalidInput
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("credit: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("credit: transaction controller does not implement DBExecutor")
	}

	wallet, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("credit: failed to lock wallet for user %d: %w", userID, err)
	}

	if reference != nil {
		exists, err := s.transactionRepo.ReferenceExists(ctx, txExecutor, userID, *reference)
		if err != nil {
			return nil, nil, fmt.Errorf("credit: failed to check reference: %w", err)
		}
		if exists {
			return nil, nil, util.ErrDuplicateEntry
		}
	}

	converted, didConvert := s.toPreferred(ctx, wallet, amount, currencyCode)
	newBalance := wallet.Balance.Add(converted)

	if err := s.walletRepo.SetWalletBalance(ctx, txExecutor, wallet.ID, newBalance); err != nil {
		return nil, nil, fmt.Errorf("credit: failed to update wallet balance: %w", err)
	}

	var sourceAmount *decimal.Decimal
	var sourceCurrency *string
	if didConvert {
		quantized := currency.Quantize(amount)
		sourceAmount = &quantized
		sourceCurrency = &currencyCode
	}

	transaction := domain.NewWalletTransaction(userID, converted, wallet.PreferredCurrency, sourceAmount, sourceCurrency, kind, newBalance, description, reference)
	if err := s.transactionRepo.CreateTransaction(ctx, txExecutor, transaction); err != nil {
		return nil, nil, fmt.Errorf("credit: failed to create transaction: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("credit: failed to commit transaction: %w", err)
	}

	wallet.Balance = newBalance
	return wallet, transaction, nil
}

// Debit subtracts money from a user's wallet.
func (s *walletService) Debit(ctx context.Context, userID int64, amount decimal.Decimal, currencyCode string, allowNegative bool, kind domain.TransactionKind, description string, reference *string) (*domain.Wallet, *domain.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, util.ErrInvalidAmount
	}
	if currencyCode != "" && !currency.IsSupported(currencyCode) {
		return nil, nil, util.ErrUnsupportedCurrency
	}
	if kind == "" {
		kind = domain.TransactionKindPurchaseDeduct
	}
	if !kind.Valid() {
		return nil, nil, util.ErrInvalidInput
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("debit: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("debit: transaction controller does not implement DBExecutor")
	}

	wallet, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("debit: failed to lock wallet for user %d: %w", userID, err)
	}

	converted, didConvert := s.toPreferred(ctx, wallet, amount, currencyCode)
	newBalance := wallet.Balance.Sub(converted)
	if !allowNegative && newBalance.IsNegative() {
		return nil, nil, util.ErrInsufficientFunds
	}

	if err := s.walletRepo.SetWalletBalance(ctx, txExecutor, wallet.ID, newBalance); err != nil {
		return nil, nil, fmt.Errorf("debit: failed to update wallet balance: %w", err)
	}

	var sourceAmount *decimal.Decimal
	var sourceCurrency *string
	if didConvert {
		quantized := currency.Quantize(amount)
		sourceAmount = &quantized
		sourceCurrency = &currencyCode
	}

	transaction := domain.NewWalletTransaction(userID, converted.Neg(), wallet.PreferredCurrency, sourceAmount, sourceCurrency, kind, newBalance, description, reference)
	if err := s.transactionRepo.CreateTransaction(ctx, txExecutor, transaction); err != nil {
		return nil, nil, fmt.Errorf("debit: failed to create transaction: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("debit: failed to commit transaction: %w", err)
	}

	wallet.Balance = newBalance
	return wallet, transaction, nil
}

// ChangePreferredCurrency re-denominates the user's balance into newCurrency.
func (s *walletService) ChangePreferredCurrency(ctx context.Context, userID int64, newCurrency string) (*domain.Wallet, error) {
	if !currency.IsSupported(newCurrency) {
		return nil, util.ErrUnsupportedCurrency
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("change currency: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("change currency: transaction controller does not implement DBExecutor")
	}

	wallet, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("change currency: failed to lock wallet for user %d: %w", userID, err)
	}
	if wallet.PreferredCurrency == newCurrency {
		return wallet, nil
	}

	newBalance, err := s.converter.Convert(ctx, wallet.Balance, wallet.PreferredCurrency, newCurrency)
	if err != nil {
		s.logger.Warn("balance re-denomination degraded to identity",
			"user_id", userID, "from", wallet.PreferredCurrency, "to", newCurrency, "error", err)
	}

	if err := s.walletRepo.SetWalletCurrency(ctx, txExecutor, wallet.ID, newCurrency, newBalance); err != nil {
		return nil, fmt.Errorf("change currency: failed to update wallet: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("change currency: failed to commit transaction: %w", err)
	}

	// No WalletTransaction row for a re-denomination: it is a unit change,
	// not a monetary event. Log it for audit instead.
	s.logger.Info("wallet re-denominated",
		"user_id", userID,
		"old_currency", wallet.PreferredCurrency, "new_currency", newCurrency,
		"old_balance", wallet.Balance, "new_balance", newBalance)

	wallet.PreferredCurrency = newCurrency
	wallet.Balance = newBalance
	return wallet, nil
}

// MinTopUp returns the minimum accepted top-up: the equivalent of 1 USD in
// the given currency. On rate degradation it mirrors the storefront rule:
// 1.00 for USD, otherwise no floor.
func (s *walletService) MinTopUp(ctx context.Context, currencyCode string) decimal.Decimal {
	one := decimal.NewFromInt(1)
	min, err := s.converter.Convert(ctx, one, currency.USD, currencyCode)
	if err != nil {
		if currencyCode == currency.USD {
			return currency.Quantize(one)
		}
		return decimal.Zero
	}
	return min
}

// GetBalance returns the user's wallet.
func (s *walletService) GetBalance(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("get balance: failed to get wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// GetTransactionHistory retrieves a filtered, paginated transaction history.
func (s *walletService) GetTransactionHistory(ctx context.Context, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, 0, util.ErrInvalidInput
	}

	_, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		if util.IsError(err, util.ErrWalletNotFound) || util.IsError(err, util.ErrNotFound) {
			return nil, 0, util.ErrWalletNotFound
		}
		return nil, 0, fmt.Errorf("failed to check wallet existence: %w", err)
	}

	transactions, totalCount, err := s.transactionRepo.GetTransactionsByUserID(ctx, s.dbExecutor, userID, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	return transactions, totalCount, nil
}

// CreateUserAndWallet creates a user together with a zero-balance wallet.
func (s *walletService) CreateUserAndWallet(ctx context.Context, username, currencyCode string) (*domain.User, *domain.Wallet, error) {
	if currencyCode == "" {
		currencyCode = currency.USD
	}
	if !currency.IsSupported(currencyCode) {
		return nil, nil, util.ErrUnsupportedCurrency
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("create user and wallet: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("create user and wallet: transaction controller does not implement DBExecutor")
	}

	_, err = s.userRepo.GetUserByUsername(ctx, txExecutor, username)
	if err == nil {
		return nil, nil, util.ErrDuplicateEntry
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, nil, fmt.Errorf("create user and wallet: failed to check existing user: %w", err)
	}

	user := domain.NewUser(username)
	if err := s.userRepo.CreateUser(ctx, txExecutor, user); err != nil {
		return nil, nil, fmt.Errorf("create user and wallet: failed to create user: %w", err)
	}

	wallet := domain.NewWallet(user.ID, currencyCode)
	if err := s.walletRepo.CreateWallet(ctx, txExecutor, wallet); err != nil {
		return nil, nil, fmt.Errorf("create user and wallet: failed to create wallet: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("create user and wallet: failed to commit transaction: %w", err)
	}

	return user, wallet, nil
}
