package commission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

var (
	// ErrConfigIncomplete is returned when base_rate or max_level is missing.
	ErrConfigIncomplete = errors.New("commission config incomplete")
	// ErrConfigInvalid is returned when a config value is malformed or out of range.
	ErrConfigInvalid = errors.New("commission config invalid")
	// ErrNoEffectiveRate is returned when no rate record predates the calculation time.
	ErrNoEffectiveRate = errors.New("no effective commission rate")
)

// Each level up the chain earns 10% less than the one below it.
var decayPerLevel = decimal.RequireFromString("0.9")

// ReferralStore resolves referral nodes; both lookups return (nil, nil) when
// the node is absent.
type ReferralStore interface {
	GetNodeByInviteeID(ctx context.Context, inviteeID string) (*models.ReferralNode, error)
	GetNodeByID(ctx context.Context, id int64) (*models.ReferralNode, error)
}

// ConfigStore is the key/value lookup for the global commission parameters.
type ConfigStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// RateStore resolves the historical rate in effect at a timestamp, or
// (nil, nil) when no record predates it.
type RateStore interface {
	EffectiveAt(ctx context.Context, ts time.Time) (*models.RateRecord, error)
}

// UserStore resolves users by external id, (nil, nil) when unknown.
type UserStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.User, error)
}

// LedgerWriter persists a batch of commission records atomically.
type LedgerWriter interface {
	InsertBatch(ctx context.Context, recs []models.CommissionRecord) ([]models.CommissionRecord, error)
}

// Calculator walks an invitee's ancestor chain after a completed order and
// writes one commission record per level, up to the configured depth.
type Calculator struct {
	referrals ReferralStore
	config    ConfigStore
	rates     RateStore
	users     UserStore
	ledger    LedgerWriter
	now       func() time.Time
}

func NewCalculator(referrals ReferralStore, config ConfigStore, rates RateStore, users UserStore, ledger LedgerWriter) *Calculator {
	return &Calculator{
		referrals: referrals,
		config:    config,
		rates:     rates,
		users:     users,
		ledger:    ledger,
		now:       time.Now,
	}
}

// Compute calculates and persists the commission chain for one completed
// order. An invitee with no referral node yields an empty result and no
// write. Nothing here deduplicates order ids: callers must not submit the
// same completed order twice.
func (c *Calculator) Compute(ctx context.Context, inviteeID string, orderAmount decimal.Decimal, orderTime time.Time, orderID string) ([]models.CommissionRecord, error) {
	if orderAmount.IsNegative() {
		return nil, fmt.Errorf("order amount must not be negative: %s", orderAmount)
	}

	node, err := c.referrals.GetNodeByInviteeID(ctx, inviteeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}

	baseRate, maxLevel, err := c.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	basis, err := c.basisTime(ctx, inviteeID, orderTime)
	if err != nil {
		return nil, err
	}

	// The basis time is fixed for the whole walk, so the effective rate is too.
	rateRec, err := c.rates.EffectiveAt(ctx, basis)
	if err != nil {
		return nil, err
	}
	if rateRec == nil {
		return nil, ErrNoEffectiveRate
	}

	if orderID == "" {
		orderID = "ORDER_" + c.now().Format("20060102150405")
	}

	var records []models.CommissionRecord
	for level := 0; node != nil && level < maxLevel; level++ {
		raw := orderAmount.Mul(baseRate).Mul(decayPerLevel.Pow(decimal.NewFromInt(int64(level))))

		linkCode := node.LinkCode
		if linkCode == "" {
			linkCode = "LINK_" + node.InviterID
		}

		records = append(records, models.CommissionRecord{
			InviterID: node.InviterID,
			InviteeID: inviteeID,
			Amount:    raw.Round(2),
			OrderID:   orderID,
			Status:    models.CommissionStatusConfirmed,
			IsSettled: false,
			UsedRate:  rateRec.Rate,
			LinkCode:  linkCode,
		})

		if node.ParentID == nil {
			break
		}
		if node, err = c.referrals.GetNodeByID(ctx, *node.ParentID); err != nil {
			return nil, err
		}
	}

	if len(records) == 0 {
		return records, nil
	}
	return c.ledger.InsertBatch(ctx, records)
}

// basisTime is max(orderTime, invitee account creation), so an order time
// inconsistent with account history can never push the rate lookup before the
// account existed. Unknown invitees fall back to the current time; a failed
// lookup aborts the computation rather than guessing a basis.
func (c *Calculator) basisTime(ctx context.Context, inviteeID string, orderTime time.Time) (time.Time, error) {
	u, err := c.users.GetByUserID(ctx, inviteeID)
	if err != nil {
		return time.Time{}, err
	}
	created := c.now()
	if u != nil {
		created = u.CreatedAt
	}
	if created.After(orderTime) {
		return created, nil
	}
	return orderTime, nil
}

func (c *Calculator) loadConfig(ctx context.Context) (decimal.Decimal, int, error) {
	baseStr, found, err := c.config.Get(ctx, models.ConfigKeyBaseRate)
	if err != nil {
		return decimal.Zero, 0, err
	}
	if !found {
		return decimal.Zero, 0, fmt.Errorf("%w: %s missing", ErrConfigIncomplete, models.ConfigKeyBaseRate)
	}
	levelStr, found, err := c.config.Get(ctx, models.ConfigKeyMaxLevel)
	if err != nil {
		return decimal.Zero, 0, err
	}
	if !found {
		return decimal.Zero, 0, fmt.Errorf("%w: %s missing", ErrConfigIncomplete, models.ConfigKeyMaxLevel)
	}

	baseRate, err := decimal.NewFromString(baseStr)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("%w: %s=%q", ErrConfigInvalid, models.ConfigKeyBaseRate, baseStr)
	}
	maxLevel, err := strconv.Atoi(levelStr)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("%w: %s=%q", ErrConfigInvalid, models.ConfigKeyMaxLevel, levelStr)
	}
	if baseRate.IsNegative() || baseRate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, 0, fmt.Errorf("%w: %s=%s must be within [0,1]", ErrConfigInvalid, models.ConfigKeyBaseRate, baseRate)
	}
	if maxLevel < 1 || maxLevel > 10 {
		return decimal.Zero, 0, fmt.Errorf("%w: %s=%d must be within [1,10]", ErrConfigInvalid, models.ConfigKeyMaxLevel, maxLevel)
	}
	return baseRate, maxLevel, nil
}
