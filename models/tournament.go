package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TournamentStatus mirrors the tournament_status ENUM in the database.
// Transitions between statuses go through the lifecycle service only.
type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusOpen      TournamentStatus = "open"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

type Tournament struct {
	ID                int              `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	Description       *string          `json:"description,omitempty" db:"description"`
	OrganizerID       int              `json:"organizer_id" db:"organizer_id"`
	Status            TournamentStatus `json:"status" db:"status"`
	EntryFeePerPerson decimal.Decimal  `json:"entry_fee_per_person" db:"entry_fee_per_person"`
	PrizeDistribution PrizeRules       `json:"prize_distribution" db:"prize_distribution"`
	ScoreRules        ScoreRules       `json:"score_rules,omitempty" db:"score_rules"`
	MinTeams          int              `json:"min_teams" db:"min_teams"`
	MaxTeams          int              `json:"max_teams" db:"max_teams"`
	StartDate         time.Time        `json:"start_date" db:"start_date"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`

	// Optional related entities, populated on demand.
	Organizer    *User                   `json:"organizer,omitempty" db:"-"`
	Participants []TournamentParticipant `json:"participants,omitempty" db:"-"`
	Pool         *EscrowPool             `json:"pool,omitempty" db:"-"`
}
