package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
)

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Name         string      `json:"name" db:"name"`
	Status       MatchStatus `json:"status" db:"status"`
	MatchTime    time.Time   `json:"match_time" db:"match_time"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`

	Participations []MatchParticipation `json:"participations,omitempty" db:"-"`
	Lock           *ResultLock          `json:"lock,omitempty" db:"-"`
}

// MatchParticipation records one team's outcome in a match, unique per
// (match, team). Rows are upserted by result submission and frozen once
// the match's lock is active.
type MatchParticipation struct {
	ID        int       `json:"id" db:"id"`
	MatchID   int       `json:"match_id" db:"match_id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	Placement int       `json:"placement" db:"placement"`
	Kills     int       `json:"kills" db:"kills"`
	Score     int       `json:"score" db:"score"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
