package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionEntryFee   TransactionType = "ENTRY_FEE"
	TransactionWinnings   TransactionType = "WINNINGS"
	TransactionRefund     TransactionType = "REFUND"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// TransactionMetadata is free-form context stored as JSONB, e.g. the
// gross/tds/net triple on a winnings payout.
type TransactionMetadata map[string]interface{}

func (m TransactionMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *TransactionMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type %T for TransactionMetadata", src)
	}
}

// Transaction is one append-only row per wallet balance mutation. The
// wallet balance equals the sum of COMPLETED transaction effects at any
// point in time.
type Transaction struct {
	ID        int                 `json:"id" db:"id"`
	UserID    int                 `json:"user_id" db:"user_id"`
	Type      TransactionType     `json:"type" db:"type"`
	Amount    decimal.Decimal     `json:"amount" db:"amount"`
	Status    TransactionStatus   `json:"status" db:"status"`
	Reference *string             `json:"reference,omitempty" db:"reference"`
	Metadata  TransactionMetadata `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
}
