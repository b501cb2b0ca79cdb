package models

import "time"

// LeaderboardEntry is the durable per-(tournament, team) point total and
// the source of truth for ranking. The Redis sorted set mirroring it is a
// derived projection with a TTL and may be rebuilt from this table at any
// time.
type LeaderboardEntry struct {
	ID            int       `json:"id" db:"id"`
	TournamentID  int       `json:"tournament_id" db:"tournament_id"`
	TeamID        int       `json:"team_id" db:"team_id"`
	TotalPoints   int       `json:"total_points" db:"total_points"`
	TotalKills    int       `json:"total_kills" db:"total_kills"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
