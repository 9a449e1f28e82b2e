// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"storefront-wallet/internal/domain"
	"storefront-wallet/internal/repository"
)

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct {
	// Stateless: methods receive a DBExecutor directly.
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction appends a new wallet transaction record.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions
              (user_id, amount, currency, source_amount, source_currency, kind, balance_after, description, reference, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`

	err := q.QueryRowContext(ctx, query,
		transaction.UserID,
		transaction.Amount,
		transaction.Currency,
		transaction.SourceAmount,
		transaction.SourceCurrency,
		transaction.Kind,
		transaction.BalanceAfter,
		transaction.Description,
		transaction.Reference,
		transaction.CreatedAt,
	).Scan(&transaction.ID)

	if err != nil {
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}
	return nil
}

// buildHistoryWhere assembles the WHERE clause and args shared by the data
// and count queries.
func buildHistoryWhere(userID int64, filter domain.TransactionFilter) (string, []interface{}) {
	clauses := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.Kind != "" {
		args = append(args, filter.Kind)
		clauses = append(clauses, "kind = $"+strconv.Itoa(len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, "created_at < $"+strconv.Itoa(len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// GetTransactionsByUserID retrieves a filtered, paginated transaction history
// for a user, newest first, plus the total matching count.
func (r *TransactionRepository) GetTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	where, args := buildHistoryWhere(userID, filter)

	transactions := []domain.WalletTransaction{}
	query := fmt.Sprintf(`
		SELECT id, user_id, amount, currency, source_amount, source_currency, kind, balance_after, description, reference, created_at
		FROM wallet_transactions
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	err := q.SelectContext(ctx, &transactions, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for user %d: %w", userID, err)
	}

	var totalCount int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM wallet_transactions WHERE %s`, where)
	err = q.GetContext(ctx, &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions for user %d: %w", userID, err)
	}

	return transactions, totalCount, nil
}

// ReferenceExists reports whether the user already has a transaction with
// the given reference code.
func (r *TransactionRepository) ReferenceExists(ctx context.Context, q repository.DBExecutor, userID int64, reference string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM wallet_transactions WHERE user_id = $1 AND reference = $2)`
	err := q.GetContext(ctx, &exists, query, userID, reference)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction reference for user %d: %w", userID, err)
	}
	return exists, nil
}
