package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaforge/esports-platform/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name is already in use")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	// ListMembers returns the team roster with the captain first, then by
	// join time. Payout splitting relies on this ordering: the rounding
	// remainder goes to the first member.
	ListMembers(ctx context.Context, teamID int) ([]models.TeamMember, error)
	AddMember(ctx context.Context, member *models.TeamMember) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, t *models.Team) error {
	query := `
		INSERT INTO teams (name, captain_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, t.Name, t.CaptainID).Scan(&t.ID, &t.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrTeamNameConflict
	}
	return err
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, name, captain_id, created_at FROM teams WHERE id = $1`

	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.CaptainID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) ListMembers(ctx context.Context, teamID int) ([]models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, is_captain, joined_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY is_captain DESC, joined_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var m models.TeamMember
		if scanErr := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.IsCaptain, &m.JoinedAt); scanErr != nil {
			return nil, scanErr
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *postgresTeamRepository) AddMember(ctx context.Context, m *models.TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, user_id, is_captain)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	return r.db.QueryRowContext(ctx, query, m.TeamID, m.UserID, m.IsCaptain).Scan(&m.ID, &m.JoinedAt)
}
