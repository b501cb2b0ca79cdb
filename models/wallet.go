package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's spendable balance. FrozenBalance is reserved for
// future dispute holds; no current flow moves money into it.
type Wallet struct {
	ID            int             `json:"id" db:"id"`
	UserID        int             `json:"user_id" db:"user_id"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	FrozenBalance decimal.Decimal `json:"frozen_balance" db:"frozen_balance"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
