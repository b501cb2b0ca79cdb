package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaforge/esports-platform/models"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

type WalletRepository interface {
	GetByUserID(ctx context.Context, exec SQLExecutor, userID int) (*models.Wallet, error)
	// EnsureExists creates a zero-balance wallet for the user if one does
	// not exist yet. Safe to call repeatedly.
	EnsureExists(ctx context.Context, exec SQLExecutor, userID int) error
	// Debit decrements the balance in a single conditional update
	// ("balance = balance - amount WHERE balance >= amount"). Zero affected
	// rows means the funds were not there; no separate read is involved, so
	// concurrent debits cannot race past the sufficiency check.
	Debit(ctx context.Context, exec SQLExecutor, userID int, amount decimal.Decimal) error
	Credit(ctx context.Context, exec SQLExecutor, userID int, amount decimal.Decimal) error
}

type postgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) WalletRepository {
	return &postgresWalletRepository{db: db}
}

func (r *postgresWalletRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWalletRepository) GetByUserID(ctx context.Context, exec SQLExecutor, userID int) (*models.Wallet, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, user_id, balance, frozen_balance, updated_at
		FROM wallets
		WHERE user_id = $1`

	w := &models.Wallet{}
	err := executor.QueryRowContext(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.FrozenBalance, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *postgresWalletRepository) EnsureExists(ctx context.Context, exec SQLExecutor, userID int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO wallets (user_id, balance, frozen_balance)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING`

	_, err := executor.ExecContext(ctx, query, userID)
	return err
}

func (r *postgresWalletRepository) Debit(ctx context.Context, exec SQLExecutor, userID int, amount decimal.Decimal) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND balance >= $1`

	result, err := executor.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInsufficientBalance)
}

func (r *postgresWalletRepository) Credit(ctx context.Context, exec SQLExecutor, userID int, amount decimal.Decimal) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE wallets
		SET balance = balance + $1, updated_at = NOW()
		WHERE user_id = $2`

	result, err := executor.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrWalletNotFound)
}
