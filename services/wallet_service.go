package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletService owns every wallet balance mutation in the system. Other
// services express entry fees, payouts and refunds as calls into this
// component; nothing else touches the balance column.
type WalletService struct {
	db         *sql.DB
	walletRepo repositories.WalletRepository
	txRepo     repositories.TransactionRepository
}

func NewWalletService(
	db *sql.DB,
	walletRepo repositories.WalletRepository,
	txRepo repositories.TransactionRepository,
) *WalletService {
	return &WalletService{
		db:         db,
		walletRepo: walletRepo,
		txRepo:     txRepo,
	}
}

func (s *WalletService) GetBalance(ctx context.Context, userID int) (*models.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return wallet, nil
}

func (s *WalletService) ListTransactions(ctx context.Context, userID, limit, offset int) ([]models.Transaction, error) {
	return s.txRepo.ListByUser(ctx, userID, limit, offset)
}

// Credit adds a positive amount to the user's wallet and records exactly
// one COMPLETED transaction, both in the same database transaction.
func (s *WalletService) Credit(ctx context.Context, userID int, amount decimal.Decimal, txType models.TransactionType, reference *string, metadata models.TransactionMetadata) (*models.Transaction, error) {
	var txn *models.Transaction
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		txn, txErr = s.creditTx(ctx, tx, userID, amount, txType, reference, metadata)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Debit removes a positive amount from the user's wallet, failing with
// ErrInsufficientFunds when the conditional decrement matches no row. On
// failure no transaction row is written.
func (s *WalletService) Debit(ctx context.Context, userID int, amount decimal.Decimal, txType models.TransactionType, metadata models.TransactionMetadata) (*models.Transaction, error) {
	var txn *models.Transaction
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		txn, txErr = s.debitTx(ctx, tx, userID, amount, txType, metadata)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Deposit records a successful external payment reported by the gateway
// adapter. The core treats it purely as a credit with a reference; gateway
// signature validation happens upstream.
func (s *WalletService) Deposit(ctx context.Context, userID int, amount decimal.Decimal, reference string) (*models.Transaction, error) {
	return s.Credit(ctx, userID, amount, models.TransactionDeposit, &reference, nil)
}

// RequestWithdrawal holds the amount immediately (conditional debit) and
// records a PENDING withdrawal awaiting manual approval.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID int, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	var txn *models.Transaction
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.walletRepo.Debit(ctx, tx, userID, amount); err != nil {
			if errors.Is(err, repositories.ErrInsufficientBalance) {
				return ErrInsufficientFunds
			}
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		reference := uuid.NewString()
		txn = &models.Transaction{
			UserID:    userID,
			Type:      models.TransactionWithdrawal,
			Amount:    amount,
			Status:    models.TransactionPending,
			Reference: &reference,
		}
		return s.txRepo.Create(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ApproveTransaction completes a PENDING deposit or withdrawal. A pending
// deposit credits the wallet on approval; a pending withdrawal already
// holds the money, so approval only finalizes the row.
func (s *WalletService) ApproveTransaction(ctx context.Context, transactionID int) error {
	return runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		txn, err := s.txRepo.GetByID(ctx, tx, transactionID)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return ErrNotFound
			}
			return err
		}
		if txn.Status != models.TransactionPending {
			return fmt.Errorf("%w: transaction %d is %s", ErrTransactionSettled, txn.ID, txn.Status)
		}

		if txn.Type == models.TransactionDeposit {
			if err := s.walletRepo.EnsureExists(ctx, tx, txn.UserID); err != nil {
				return err
			}
			if err := s.walletRepo.Credit(ctx, tx, txn.UserID, txn.Amount); err != nil {
				return err
			}
		}
		return s.txRepo.UpdateStatusConditional(ctx, tx, txn.ID, models.TransactionPending, models.TransactionCompleted)
	})
}

// RejectTransaction fails a PENDING deposit or withdrawal. A rejected
// withdrawal reverses the hold by crediting the amount back.
func (s *WalletService) RejectTransaction(ctx context.Context, transactionID int) error {
	return runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		txn, err := s.txRepo.GetByID(ctx, tx, transactionID)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return ErrNotFound
			}
			return err
		}
		if txn.Status != models.TransactionPending {
			return fmt.Errorf("%w: transaction %d is %s", ErrTransactionSettled, txn.ID, txn.Status)
		}

		if txn.Type == models.TransactionWithdrawal {
			if err := s.walletRepo.Credit(ctx, tx, txn.UserID, txn.Amount); err != nil {
				return err
			}
		}
		return s.txRepo.UpdateStatusConditional(ctx, tx, txn.ID, models.TransactionPending, models.TransactionFailed)
	})
}

// creditTx performs a credit inside a caller-owned transaction. Used by
// the escrow and registration flows so their whole batch stays atomic.
func (s *WalletService) creditTx(ctx context.Context, exec repositories.SQLExecutor, userID int, amount decimal.Decimal, txType models.TransactionType, reference *string, metadata models.TransactionMetadata) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}
	if err := s.walletRepo.EnsureExists(ctx, exec, userID); err != nil {
		return nil, err
	}
	if err := s.walletRepo.Credit(ctx, exec, userID, amount); err != nil {
		return nil, err
	}
	txn := &models.Transaction{
		UserID:   userID,
		Type:     txType,
		Amount:   amount,
		Status:   models.TransactionCompleted,
		Metadata: metadata,
	}
	if reference != nil {
		txn.Reference = reference
	}
	if err := s.txRepo.Create(ctx, exec, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// debitTx performs a conditional debit inside a caller-owned transaction.
// No transaction row is written when the sufficiency check fails.
func (s *WalletService) debitTx(ctx context.Context, exec repositories.SQLExecutor, userID int, amount decimal.Decimal, txType models.TransactionType, metadata models.TransactionMetadata) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}
	if err := s.walletRepo.Debit(ctx, exec, userID, amount); err != nil {
		if errors.Is(err, repositories.ErrInsufficientBalance) {
			return nil, ErrInsufficientFunds
		}
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	txn := &models.Transaction{
		UserID:   userID,
		Type:     txType,
		Amount:   amount.Neg(),
		Status:   models.TransactionCompleted,
		Metadata: metadata,
	}
	if err := s.txRepo.Create(ctx, exec, txn); err != nil {
		return nil, err
	}
	return txn, nil
}
