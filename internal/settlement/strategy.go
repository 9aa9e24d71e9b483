package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

// Strategy executes one settlement inside the engine's transaction: create
// the settlement record, flip the claimed commission records, mark the
// settlement completed. Only the rows identified by claimed are flipped;
// commissions landing mid-settlement wait for the next run. Any error aborts
// the whole transaction.
type Strategy interface {
	Execute(ctx context.Context, tx pgx.Tx, userID string, available decimal.Decimal, claimed []int64) (*models.Settlement, error)
}

// ForName selects a strategy by config name, falling back to default.
func ForName(name string, commissions CommissionStore, settlements SettlementStore) Strategy {
	switch name {
	case "step":
		return &StepStrategy{
			Commissions: commissions,
			Settlements: settlements,
			Threshold:   decimal.NewFromInt(1000),
			BonusRate:   decimal.RequireFromString("0.05"),
		}
	default:
		return &DefaultStrategy{Commissions: commissions, Settlements: settlements}
	}
}

// DefaultStrategy settles the available amount as-is.
type DefaultStrategy struct {
	Commissions CommissionStore
	Settlements SettlementStore
}

func (s *DefaultStrategy) Execute(ctx context.Context, tx pgx.Tx, userID string, available decimal.Decimal, claimed []int64) (*models.Settlement, error) {
	return finishSettlement(ctx, tx, s.Settlements, s.Commissions, userID, available, claimed)
}

// StepStrategy grants a bonus on the portion of the settled amount above
// Threshold. The bonus is written as its own commission record so the ledger
// still explains the settlement total, then swept together with the rest.
type StepStrategy struct {
	Commissions CommissionStore
	Settlements SettlementStore
	Threshold   decimal.Decimal
	BonusRate   decimal.Decimal
}

func (s *StepStrategy) Execute(ctx context.Context, tx pgx.Tx, userID string, available decimal.Decimal, claimed []int64) (*models.Settlement, error) {
	total := available
	if available.GreaterThan(s.Threshold) {
		bonus := available.Sub(s.Threshold).Mul(s.BonusRate).Round(2)
		if bonus.IsPositive() {
			rec := &models.CommissionRecord{
				InviterID: userID,
				InviteeID: userID,
				Amount:    bonus,
				OrderID:   "BONUS_" + time.Now().Format("20060102150405"),
				Status:    models.CommissionStatusConfirmed,
				IsSettled: false,
				UsedRate:  s.BonusRate,
				LinkCode:  "BONUS_" + userID,
			}
			if err := s.Commissions.InsertTx(ctx, tx, rec); err != nil {
				return nil, err
			}
			total = total.Add(bonus)
			claimed = append(claimed, rec.ID)
		}
	}
	return finishSettlement(ctx, tx, s.Settlements, s.Commissions, userID, total, claimed)
}

func finishSettlement(ctx context.Context, tx pgx.Tx, settlements SettlementStore, commissions CommissionStore, userID string, total decimal.Decimal, claimed []int64) (*models.Settlement, error) {
	s, err := settlements.CreateProcessing(ctx, tx, userID, total)
	if err != nil {
		return nil, err
	}
	n, err := commissions.MarkSettled(ctx, tx, claimed)
	if err != nil {
		return nil, err
	}
	if n != int64(len(claimed)) {
		return nil, fmt.Errorf("claimed %d commission records but settled %d", len(claimed), n)
	}
	now := time.Now().UTC()
	if err := settlements.Complete(ctx, tx, s.ID, now); err != nil {
		return nil, err
	}
	s.Status = models.SettlementStatusCompleted
	s.CompletedAt = &now
	return s, nil
}
