package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/arenaforge/esports-platform/models"
)

// AuditRepository is append-only: there is deliberately no update or
// delete method.
type AuditRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.AuditEntry) error
	ListBetween(ctx context.Context, from, to time.Time, eventType *models.AuditEventType) ([]models.AuditEntry, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.AuditEntry, error)
}

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) AuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const auditColumns = `id, event_type, tournament_id, match_id, actor_id, details, created_at`

func (r *postgresAuditRepository) Create(ctx context.Context, exec SQLExecutor, e *models.AuditEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO compliance_audit_log (event_type, tournament_id, match_id, actor_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		e.EventType, e.TournamentID, e.MatchID, e.ActorID, e.Details,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *postgresAuditRepository) ListBetween(ctx context.Context, from, to time.Time, eventType *models.AuditEventType) ([]models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM compliance_audit_log WHERE created_at >= $1 AND created_at < $2`
	args := []interface{}{from, to}
	if eventType != nil {
		query += ` AND event_type = $3`
		args = append(args, *eventType)
	}
	query += ` ORDER BY created_at ASC`

	return r.queryEntries(ctx, query, args...)
}

func (r *postgresAuditRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM compliance_audit_log WHERE tournament_id = $1 ORDER BY created_at ASC`
	return r.queryEntries(ctx, query, tournamentID)
}

func (r *postgresAuditRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		if scanErr := rows.Scan(&e.ID, &e.EventType, &e.TournamentID, &e.MatchID, &e.ActorID, &e.Details, &e.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
