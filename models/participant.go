package models

import "time"

type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "PENDING"
	ParticipantApproved  ParticipantStatus = "APPROVED"
	ParticipantCancelled ParticipantStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// TournamentParticipant links a user (and optionally their team) to a
// tournament. PaymentStatus moves PAID -> REFUNDED exactly once; the
// refund path is guarded by a conditional update on that column.
type TournamentParticipant struct {
	ID            int               `json:"id" db:"id"`
	TournamentID  int               `json:"tournament_id" db:"tournament_id"`
	UserID        int               `json:"user_id" db:"user_id"`
	TeamID        *int              `json:"team_id,omitempty" db:"team_id"`
	Status        ParticipantStatus `json:"status" db:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status" db:"payment_status"`
	RegisteredAt  time.Time         `json:"registered_at" db:"registered_at"`

	User *User `json:"user,omitempty" db:"-"`
	Team *Team `json:"team,omitempty" db:"-"`
}
