package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/commission"
	"github.com/invitelink/backend/internal/models"
)

// CalculateCommissionArgs is the queued form of an order-completed event.
// The amount travels as a string so the payload round-trips without float
// precision loss.
type CalculateCommissionArgs struct {
	InviteeID   string    `json:"invitee_id"`
	OrderAmount string    `json:"order_amount"`
	OrderTime   time.Time `json:"order_time"`
	OrderID     string    `json:"order_id"`
}

func (CalculateCommissionArgs) Kind() string { return "calculate_commission" }

// Calculator is the synchronous commission engine the worker drives.
type Calculator interface {
	Compute(ctx context.Context, inviteeID string, orderAmount decimal.Decimal, orderTime time.Time, orderID string) ([]models.CommissionRecord, error)
}

type CalculateCommissionWorker struct {
	river.WorkerDefaults[CalculateCommissionArgs]
	calc Calculator
	log  *slog.Logger
}

func NewCalculateCommissionWorker(calc Calculator, log *slog.Logger) *CalculateCommissionWorker {
	if log == nil {
		log = slog.Default()
	}
	return &CalculateCommissionWorker{calc: calc, log: log}
}

func (w *CalculateCommissionWorker) Work(ctx context.Context, job *river.Job[CalculateCommissionArgs]) error {
	args := job.Args

	amount, err := decimal.NewFromString(args.OrderAmount)
	if err != nil {
		return river.JobCancel(fmt.Errorf("bad order_amount %q: %w", args.OrderAmount, err))
	}

	recs, err := w.calc.Compute(ctx, args.InviteeID, amount, args.OrderTime, args.OrderID)
	if err != nil {
		// Configuration problems won't heal on retry; park the job instead of
		// hammering the queue.
		if errors.Is(err, commission.ErrConfigIncomplete) ||
			errors.Is(err, commission.ErrConfigInvalid) ||
			errors.Is(err, commission.ErrNoEffectiveRate) {
			return river.JobCancel(err)
		}
		return err
	}

	w.log.Info("commission calculated",
		"order_id", args.OrderID,
		"invitee_id", args.InviteeID,
		"records", len(recs),
	)
	return nil
}
