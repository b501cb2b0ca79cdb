package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenaforge/esports-platform/models"
)

var ErrLeaderboardEntryNotFound = errors.New("leaderboard entry not found")

type LeaderboardRepository interface {
	// IncrementScore adds (never replaces) the points, kills and one played
	// match onto the team's durable total, creating the row on first score.
	IncrementScore(ctx context.Context, exec SQLExecutor, tournamentID, teamID, points, kills int) error
	// ListByTournament returns entries ranked by total points descending
	// with kills as the tiebreaker. This is the authoritative ranking; the
	// cache is only an accelerator.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.LeaderboardEntry, error)
	GetByTournamentAndTeam(ctx context.Context, tournamentID, teamID int) (*models.LeaderboardEntry, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLeaderboardRepository) IncrementScore(ctx context.Context, exec SQLExecutor, tournamentID, teamID, points, kills int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_leaderboard (tournament_id, team_id, total_points, total_kills, matches_played, updated_at)
		VALUES ($1, $2, $3, $4, 1, NOW())
		ON CONFLICT (tournament_id, team_id) DO UPDATE SET
			total_points = tournament_leaderboard.total_points + EXCLUDED.total_points,
			total_kills = tournament_leaderboard.total_kills + EXCLUDED.total_kills,
			matches_played = tournament_leaderboard.matches_played + 1,
			updated_at = NOW()`

	_, err := executor.ExecContext(ctx, query, tournamentID, teamID, points, kills)
	return err
}

func (r *postgresLeaderboardRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.LeaderboardEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, team_id, total_points, total_kills, matches_played, updated_at
		FROM tournament_leaderboard
		WHERE tournament_id = $1
		ORDER BY total_points DESC, total_kills DESC, team_id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if scanErr := rows.Scan(&e.ID, &e.TournamentID, &e.TeamID, &e.TotalPoints, &e.TotalKills, &e.MatchesPlayed, &e.UpdatedAt); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresLeaderboardRepository) GetByTournamentAndTeam(ctx context.Context, tournamentID, teamID int) (*models.LeaderboardEntry, error) {
	query := `
		SELECT id, tournament_id, team_id, total_points, total_kills, matches_played, updated_at
		FROM tournament_leaderboard
		WHERE tournament_id = $1 AND team_id = $2`

	e := &models.LeaderboardEntry{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, teamID).Scan(
		&e.ID, &e.TournamentID, &e.TeamID, &e.TotalPoints, &e.TotalKills, &e.MatchesPlayed, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaderboardEntryNotFound
		}
		return nil, err
	}
	return e, nil
}
