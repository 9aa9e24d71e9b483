package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

// ErrNoAvailableCommission is returned when a user requests settlement with
// zero unsettled balance.
var ErrNoAvailableCommission = errors.New("no available commission to settle")

// SettlementError wraps whatever failed inside the settlement transaction.
// The transaction is rolled back before it surfaces, so no partial state
// remains.
type SettlementError struct {
	UserID string
	Err    error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement for user %s failed: %v", e.UserID, e.Err)
}

func (e *SettlementError) Unwrap() error { return e.Err }

// CommissionStore is the slice of the commission ledger the engine needs.
type CommissionStore interface {
	LockUnsettled(ctx context.Context, tx pgx.Tx, inviterID string) ([]models.CommissionRecord, error)
	MarkSettled(ctx context.Context, tx pgx.Tx, ids []int64) (int64, error)
	InsertTx(ctx context.Context, tx pgx.Tx, rec *models.CommissionRecord) error
}

// SettlementStore persists settlement records inside the engine's transaction.
type SettlementStore interface {
	CreateProcessing(ctx context.Context, tx pgx.Tx, userID string, total decimal.Decimal) (*models.Settlement, error)
	Complete(ctx context.Context, tx pgx.Tx, id int64, completedAt time.Time) error
}

// DB begins transactions; *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Engine aggregates a user's unsettled commissions and settles them in one
// transaction. The unsettled rows are locked first, so two concurrent runs
// for the same user serialize and the loser finds nothing left to claim.
type Engine struct {
	db          DB
	commissions CommissionStore
	strategy    Strategy
}

func NewEngine(db DB, commissions CommissionStore, strategy Strategy) *Engine {
	return &Engine{db: db, commissions: commissions, strategy: strategy}
}

// Settle runs one settlement for userID and returns the completed settlement
// record. The available amount is frozen at the start of the transaction;
// commissions arriving afterwards wait for the next run.
func (e *Engine) Settle(ctx context.Context, userID string) (*models.Settlement, error) {
	if userID == "" {
		return nil, errors.New("user id must not be empty")
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, &SettlementError{UserID: userID, Err: err}
	}
	defer tx.Rollback(ctx)

	unsettled, err := e.commissions.LockUnsettled(ctx, tx, userID)
	if err != nil {
		return nil, &SettlementError{UserID: userID, Err: err}
	}
	available := decimal.Zero
	claimed := make([]int64, 0, len(unsettled))
	for _, rec := range unsettled {
		available = available.Add(rec.Amount)
		claimed = append(claimed, rec.ID)
	}
	if !available.IsPositive() {
		return nil, ErrNoAvailableCommission
	}

	s, err := e.strategy.Execute(ctx, tx, userID, available, claimed)
	if err != nil {
		return nil, &SettlementError{UserID: userID, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &SettlementError{UserID: userID, Err: err}
	}
	return s, nil
}
