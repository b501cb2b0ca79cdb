package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaforge/esports-platform/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound  = errors.New("participant registration not found")
	ErrRegistrationConflict = errors.New("user is already registered for this tournament")
	// ErrParticipantNotRefundable is returned when the PAID -> REFUNDED
	// conditional update matched zero rows; the refund is not re-entrant.
	ErrParticipantNotRefundable = errors.New("participant is not in a refundable payment status")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, participant *models.TournamentParticipant) error
	GetByID(ctx context.Context, id int) (*models.TournamentParticipant, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.TournamentParticipant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, paymentStatus *models.PaymentStatus) ([]models.TournamentParticipant, error)
	// CountDistinctTeams counts registered teams with APPROVED status,
	// used by the go-live guard.
	CountDistinctTeams(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	// MarkRefunded flips payment status PAID -> REFUNDED exactly once.
	MarkRefunded(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `id, tournament_id, user_id, team_id, status, payment_status, registered_at`

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.TournamentParticipant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, team_id, status, payment_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, registered_at`

	err := executor.QueryRowContext(ctx, query,
		p.TournamentID, p.UserID, p.TeamID, p.Status, p.PaymentStatus,
	).Scan(&p.ID, &p.RegisteredAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrRegistrationConflict
	}
	return err
}

func (r *postgresParticipantRepository) scanParticipant(row interface{ Scan(...interface{}) error }) (*models.TournamentParticipant, error) {
	p := &models.TournamentParticipant{}
	err := row.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.TeamID, &p.Status, &p.PaymentStatus, &p.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.TournamentParticipant, error) {
	query := `SELECT ` + participantColumns + ` FROM tournament_participants WHERE id = $1`
	return r.scanParticipant(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.TournamentParticipant, error) {
	query := `SELECT ` + participantColumns + ` FROM tournament_participants WHERE user_id = $1 AND tournament_id = $2`
	return r.scanParticipant(r.db.QueryRowContext(ctx, query, userID, tournamentID))
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, paymentStatus *models.PaymentStatus) ([]models.TournamentParticipant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + participantColumns + ` FROM tournament_participants WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if paymentStatus != nil {
		query += ` AND payment_status = $2`
		args = append(args, *paymentStatus)
	}
	query += ` ORDER BY registered_at ASC`

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.TournamentParticipant, 0)
	for rows.Next() {
		p, scanErr := r.scanParticipant(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) CountDistinctTeams(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(DISTINCT team_id)
		FROM tournament_participants
		WHERE tournament_id = $1 AND team_id IS NOT NULL AND status = $2`

	var count int
	err := executor.QueryRowContext(ctx, query, tournamentID, models.ParticipantApproved).Scan(&count)
	return count, err
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) MarkRefunded(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_participants
		SET payment_status = $1
		WHERE id = $2 AND payment_status = $3`

	result, err := executor.ExecContext(ctx, query, models.PaymentRefunded, id, models.PaymentPaid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotRefundable)
}
