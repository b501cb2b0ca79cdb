package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EscrowPoolStatus is monotonic: OPEN -> LOCKED -> {DISTRIBUTED, REFUNDED}.
// Both DISTRIBUTED and REFUNDED are terminal; a refunded pool can never be
// distributed afterwards, and vice versa.
type EscrowPoolStatus string

const (
	PoolOpen        EscrowPoolStatus = "OPEN"
	PoolLocked      EscrowPoolStatus = "LOCKED"
	PoolDistributed EscrowPoolStatus = "DISTRIBUTED"
	PoolRefunded    EscrowPoolStatus = "REFUNDED"
)

// EscrowPool is the per-tournament custody account. TotalCollected only
// grows while the pool is OPEN; PlatformFee and NetPrizePool are fixed the
// instant the pool locks.
type EscrowPool struct {
	ID             int              `json:"id" db:"id"`
	TournamentID   int              `json:"tournament_id" db:"tournament_id"`
	TotalCollected decimal.Decimal  `json:"total_collected" db:"total_collected"`
	PlatformFee    decimal.Decimal  `json:"platform_fee" db:"platform_fee"`
	NetPrizePool   decimal.Decimal  `json:"net_prize_pool" db:"net_prize_pool"`
	Status         EscrowPoolStatus `json:"status" db:"status"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}
