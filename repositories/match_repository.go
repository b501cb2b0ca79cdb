package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaforge/esports-platform/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	// UpsertParticipation inserts or replaces one team's recorded outcome
	// for the match; unique per (match, team).
	UpsertParticipation(ctx context.Context, exec SQLExecutor, p *models.MatchParticipation) error
	ListParticipations(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchParticipation, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, name, status, match_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, m.TournamentID, m.Name, m.Status, m.MatchTime).Scan(&m.ID, &m.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return ErrMatchTournamentInvalid
	}
	return err
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, tournament_id, name, status, match_time, created_at FROM matches WHERE id = $1`

	m := &models.Match{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.TournamentID, &m.Name, &m.Status, &m.MatchTime, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error) {
	query := `
		SELECT id, tournament_id, name, status, match_time, created_at
		FROM matches
		WHERE tournament_id = $1
		ORDER BY match_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := rows.Scan(&m.ID, &m.TournamentID, &m.Name, &m.Status, &m.MatchTime, &m.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpsertParticipation(ctx context.Context, exec SQLExecutor, p *models.MatchParticipation) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_participations (match_id, team_id, placement, kills, score, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (match_id, team_id) DO UPDATE SET
			placement = EXCLUDED.placement,
			kills = EXCLUDED.kills,
			score = EXCLUDED.score,
			updated_at = NOW()
		RETURNING id, updated_at`

	return executor.QueryRowContext(ctx, query,
		p.MatchID, p.TeamID, p.Placement, p.Kills, p.Score,
	).Scan(&p.ID, &p.UpdatedAt)
}

func (r *postgresMatchRepository) ListParticipations(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchParticipation, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, match_id, team_id, placement, kills, score, updated_at
		FROM match_participations
		WHERE match_id = $1
		ORDER BY placement ASC`

	rows, err := executor.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participations := make([]models.MatchParticipation, 0)
	for rows.Next() {
		var p models.MatchParticipation
		if scanErr := rows.Scan(&p.ID, &p.MatchID, &p.TeamID, &p.Placement, &p.Kills, &p.Score, &p.UpdatedAt); scanErr != nil {
			return nil, scanErr
		}
		participations = append(participations, p)
	}
	return participations, rows.Err()
}
