package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaforge/esports-platform/models"
)

var (
	ErrResultLockNotFound = errors.New("result lock not found")
	// ErrResultLockActive is returned when creating a lock while a
	// non-overridden one already exists for the match.
	ErrResultLockActive = errors.New("an active result lock already exists for this match")
)

type ResultLockRepository interface {
	// GetActiveByMatch returns the current non-overridden lock, if any.
	GetActiveByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.ResultLock, error)
	// GetLatestByMatch returns the most recent lock row regardless of
	// override state.
	GetLatestByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.ResultLock, error)
	Create(ctx context.Context, exec SQLExecutor, lock *models.ResultLock) error
	// Override flips the active lock to overridden with actor, timestamp
	// and reason. The row is kept; lock history is never deleted.
	Override(ctx context.Context, exec SQLExecutor, lockID, actorID int, reason string) error
}

type postgresResultLockRepository struct {
	db *sql.DB
}

func NewPostgresResultLockRepository(db *sql.DB) ResultLockRepository {
	return &postgresResultLockRepository{db: db}
}

func (r *postgresResultLockRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const resultLockColumns = `id, match_id, locked_by, locked_at, is_overridden, override_by, override_at, override_reason`

func (r *postgresResultLockRepository) scanLock(row interface{ Scan(...interface{}) error }) (*models.ResultLock, error) {
	l := &models.ResultLock{}
	err := row.Scan(
		&l.ID, &l.MatchID, &l.LockedBy, &l.LockedAt,
		&l.IsOverridden, &l.OverrideBy, &l.OverrideAt, &l.OverrideReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultLockNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *postgresResultLockRepository) GetActiveByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.ResultLock, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + resultLockColumns + `
		FROM result_locks
		WHERE match_id = $1 AND is_overridden = FALSE
		ORDER BY locked_at DESC
		LIMIT 1`

	return r.scanLock(executor.QueryRowContext(ctx, query, matchID))
}

func (r *postgresResultLockRepository) GetLatestByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.ResultLock, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + resultLockColumns + `
		FROM result_locks
		WHERE match_id = $1
		ORDER BY locked_at DESC
		LIMIT 1`

	return r.scanLock(executor.QueryRowContext(ctx, query, matchID))
}

func (r *postgresResultLockRepository) Create(ctx context.Context, exec SQLExecutor, l *models.ResultLock) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO result_locks (match_id, locked_by, locked_at, is_overridden)
		VALUES ($1, $2, NOW(), FALSE)
		RETURNING id, locked_at`

	return executor.QueryRowContext(ctx, query, l.MatchID, l.LockedBy).Scan(&l.ID, &l.LockedAt)
}

func (r *postgresResultLockRepository) Override(ctx context.Context, exec SQLExecutor, lockID, actorID int, reason string) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE result_locks
		SET is_overridden = TRUE,
		    override_by = $1,
		    override_at = NOW(),
		    override_reason = $2
		WHERE id = $3 AND is_overridden = FALSE`

	result, err := executor.ExecContext(ctx, query, actorID, reason, lockID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrResultLockNotFound)
}
