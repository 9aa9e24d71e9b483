package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission record status values.
const (
	CommissionStatusPending   = "pending"
	CommissionStatusConfirmed = "confirmed"
)

// Config keys required by the calculator.
const (
	ConfigKeyBaseRate = "base_rate"
	ConfigKeyMaxLevel = "max_level"
)

// CommissionRecord is one level of commission owed for one order. Records are
// append-only: the single permitted mutation is IsSettled flipping false to
// true when the record is swept into a settlement.
type CommissionRecord struct {
	ID        int64           `json:"id"`
	InviterID string          `json:"inviter_id"`
	InviteeID string          `json:"invitee_id"`
	Amount    decimal.Decimal `json:"amount"`
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	IsSettled bool            `json:"is_settled"`
	// UsedRate is the historical rate in effect at calculation time, stored
	// for audit. The paid amount is computed from the live base_rate config.
	UsedRate decimal.Decimal `json:"used_rate"`
	LinkCode string          `json:"link_code"`
}

// RateRecord is one append-only entry in the commission rate history. The
// record with the greatest EffectiveAt not exceeding a query timestamp is the
// rate in effect at that timestamp.
type RateRecord struct {
	ID          int64           `json:"id"`
	AdminID     string          `json:"admin_id"`
	Rate        decimal.Decimal `json:"rate"`
	EffectiveAt time.Time       `json:"effective_at"`
	CreatedAt   time.Time       `json:"created_at"`
	Description string          `json:"description,omitempty"`
}

type ConfigEntry struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
