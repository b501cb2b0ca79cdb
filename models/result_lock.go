package models

import "time"

// ResultLock freezes a match's recorded outcome. While a lock exists and
// IsOverridden is false, result submission for the match is rejected. An
// override resets the row to a re-lockable state; the override event itself
// stays in the compliance audit log permanently.
type ResultLock struct {
	ID             int       `json:"id" db:"id"`
	MatchID        int       `json:"match_id" db:"match_id"`
	LockedBy       int       `json:"locked_by" db:"locked_by"`
	LockedAt       time.Time `json:"locked_at" db:"locked_at"`
	IsOverridden   bool      `json:"is_overridden" db:"is_overridden"`
	OverrideBy     *int      `json:"override_by,omitempty" db:"override_by"`
	OverrideAt     *time.Time `json:"override_at,omitempty" db:"override_at"`
	OverrideReason *string   `json:"override_reason,omitempty" db:"override_reason"`
}
