package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEventType enumerates the reportable events. The audit log is
// append-only: rows are never updated or deleted.
type AuditEventType string

const (
	AuditStatusChanged    AuditEventType = "status_changed"
	AuditPoolLocked       AuditEventType = "pool_locked"
	AuditPrizeDistributed AuditEventType = "prize_distributed"
	AuditRefundIssued     AuditEventType = "refund_issued"
	AuditResultLocked     AuditEventType = "result_locked"
	AuditResultOverridden AuditEventType = "result_overridden"
)

type AuditDetails map[string]interface{}

func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *AuditDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported type %T for AuditDetails", src)
	}
}

type AuditEntry struct {
	ID           int            `json:"id" db:"id"`
	EventType    AuditEventType `json:"event_type" db:"event_type"`
	TournamentID *int           `json:"tournament_id,omitempty" db:"tournament_id"`
	MatchID      *int           `json:"match_id,omitempty" db:"match_id"`
	ActorID      int            `json:"actor_id" db:"actor_id"`
	Details      AuditDetails   `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
