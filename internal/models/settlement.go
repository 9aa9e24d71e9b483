package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement status values.
const (
	SettlementStatusProcessing = "processing"
	SettlementStatusCompleted  = "completed"
	SettlementStatusFailed     = "failed"
)

// Settlement is one settlement run for one user. TotalAmount is frozen at the
// sum of the commission records claimed by that run; Status and CompletedAt
// are written exactly once when the run's transaction commits.
type Settlement struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
