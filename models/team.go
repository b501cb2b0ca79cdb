package models

import "time"

type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CaptainID int       `json:"captain_id" db:"captain_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Members []TeamMember `json:"members,omitempty" db:"-"`
}

// TeamMember links a user to a team. IsCaptain marks the primary member:
// payout rounding remainders always land on the captain so a team's
// member payouts sum to the team prize exactly.
type TeamMember struct {
	ID        int       `json:"id" db:"id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	IsCaptain bool      `json:"is_captain" db:"is_captain"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}
