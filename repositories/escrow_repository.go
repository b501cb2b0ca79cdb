package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaforge/esports-platform/models"
	"github.com/shopspring/decimal"
)

var (
	ErrPoolNotFound = errors.New("escrow pool not found")
	// ErrPoolStatusConflict is returned when a conditional status update
	// matched zero rows: another caller already advanced the pool.
	ErrPoolStatusConflict = errors.New("escrow pool is not in the required status")
)

type EscrowRepository interface {
	// EnsureExists creates an OPEN zero-balance pool for the tournament if
	// none exists. Idempotent.
	EnsureExists(ctx context.Context, exec SQLExecutor, tournamentID int) error
	GetByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.EscrowPool, error)
	// CreditEntryFee adds an entry fee to an OPEN pool. Crediting a pool in
	// any other status matches zero rows and returns ErrPoolStatusConflict:
	// fee collection after lock is a programming error, not a soft no-op.
	CreditEntryFee(ctx context.Context, exec SQLExecutor, tournamentID int, amount decimal.Decimal) error
	// Lock fixes the platform fee and net prize pool and flips
	// OPEN -> LOCKED in one conditional update.
	Lock(ctx context.Context, exec SQLExecutor, tournamentID int, platformFee, netPrizePool decimal.Decimal) error
	// UpdateStatusConditional flips `from` -> `to`; zero affected rows
	// returns ErrPoolStatusConflict. This is the application-level mutex
	// that makes double distribution structurally impossible.
	UpdateStatusConditional(ctx context.Context, exec SQLExecutor, tournamentID int, from, to models.EscrowPoolStatus) error
}

type postgresEscrowRepository struct {
	db *sql.DB
}

func NewPostgresEscrowRepository(db *sql.DB) EscrowRepository {
	return &postgresEscrowRepository{db: db}
}

func (r *postgresEscrowRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEscrowRepository) EnsureExists(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO escrow_pools (tournament_id, total_collected, platform_fee, net_prize_pool, status)
		VALUES ($1, 0, 0, 0, $2)
		ON CONFLICT (tournament_id) DO NOTHING`

	_, err := executor.ExecContext(ctx, query, tournamentID, models.PoolOpen)
	return err
}

func (r *postgresEscrowRepository) GetByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.EscrowPool, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, total_collected, platform_fee, net_prize_pool, status, created_at, updated_at
		FROM escrow_pools
		WHERE tournament_id = $1`

	p := &models.EscrowPool{}
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(
		&p.ID, &p.TournamentID, &p.TotalCollected, &p.PlatformFee, &p.NetPrizePool,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresEscrowRepository) CreditEntryFee(ctx context.Context, exec SQLExecutor, tournamentID int, amount decimal.Decimal) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE escrow_pools
		SET total_collected = total_collected + $1,
		    net_prize_pool = net_prize_pool + $1,
		    updated_at = NOW()
		WHERE tournament_id = $2 AND status = $3`

	result, err := executor.ExecContext(ctx, query, amount, tournamentID, models.PoolOpen)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPoolStatusConflict)
}

func (r *postgresEscrowRepository) Lock(ctx context.Context, exec SQLExecutor, tournamentID int, platformFee, netPrizePool decimal.Decimal) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE escrow_pools
		SET platform_fee = $1,
		    net_prize_pool = $2,
		    status = $3,
		    updated_at = NOW()
		WHERE tournament_id = $4 AND status = $5`

	result, err := executor.ExecContext(ctx, query, platformFee, netPrizePool, models.PoolLocked, tournamentID, models.PoolOpen)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPoolStatusConflict)
}

func (r *postgresEscrowRepository) UpdateStatusConditional(ctx context.Context, exec SQLExecutor, tournamentID int, from, to models.EscrowPoolStatus) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE escrow_pools
		SET status = $1, updated_at = NOW()
		WHERE tournament_id = $2 AND status = $3`

	result, err := executor.ExecContext(ctx, query, to, tournamentID, from)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPoolStatusConflict)
}
