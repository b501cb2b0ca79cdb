package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arenaforge/esports-platform/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, txn *models.Transaction) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Transaction, error)
	// UpdateStatusConditional moves a transaction out of PENDING exactly
	// once; zero affected rows means it was already resolved.
	UpdateStatusConditional(ctx context.Context, exec SQLExecutor, id int, from, to models.TransactionStatus) error
	ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error)
	// ListWinningsBetween returns COMPLETED WINNINGS transactions in
	// [from, to), optionally restricted to an organizer recorded in the
	// payout metadata. Feeds the TDS compliance report.
	ListWinningsBetween(ctx context.Context, from, to time.Time, organizerID *int) ([]models.Transaction, error)
}

type postgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) TransactionRepository {
	return &postgresTransactionRepository{db: db}
}

func (r *postgresTransactionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const transactionColumns = `id, user_id, type, amount, status, reference, metadata, created_at`

func (r *postgresTransactionRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Transaction) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO transactions (user_id, type, amount, status, reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		t.UserID, t.Type, t.Amount, t.Status, t.Reference, t.Metadata,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *postgresTransactionRepository) scanTransaction(row interface{ Scan(...interface{}) error }) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference, &t.Metadata, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTransactionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Transaction, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanTransaction(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTransactionRepository) UpdateStatusConditional(ctx context.Context, exec SQLExecutor, id int, from, to models.TransactionStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTransactionNotFound)
}

func (r *postgresTransactionRepository) ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`

	args := []interface{}{userID}
	argID := 2
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
		argID++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, offset)
	}

	return r.queryTransactions(ctx, query, args...)
}

func (r *postgresTransactionRepository) ListWinningsBetween(ctx context.Context, from, to time.Time, organizerID *int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE type = $1 AND status = $2 AND created_at >= $3 AND created_at < $4`

	args := []interface{}{models.TransactionWinnings, models.TransactionCompleted, from, to}
	if organizerID != nil {
		query += ` AND (metadata->>'organizer_id')::int = $5`
		args = append(args, *organizerID)
	}
	query += ` ORDER BY created_at ASC`

	return r.queryTransactions(ctx, query, args...)
}

func (r *postgresTransactionRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		t, scanErr := r.scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}
