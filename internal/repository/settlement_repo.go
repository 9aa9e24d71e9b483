package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

type SettlementRepo struct {
	pool *pgxpool.Pool
}

func NewSettlementRepo(pool *pgxpool.Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

// CreateProcessing inserts a settlement in processing state inside the given
// transaction and returns it with its id assigned.
func (r *SettlementRepo) CreateProcessing(ctx context.Context, tx pgx.Tx, userID string, total decimal.Decimal) (*models.Settlement, error) {
	s := &models.Settlement{
		UserID:      userID,
		TotalAmount: total,
		Status:      models.SettlementStatusProcessing,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO settlement_records (user_id, total_amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, userID, total.String(), s.Status).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Complete marks the settlement completed. Runs in the same transaction that
// flipped the commission records, so status and ledger flips commit together.
func (r *SettlementRepo) Complete(ctx context.Context, tx pgx.Tx, id int64, completedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE settlement_records SET status = $2, completed_at = $3 WHERE id = $1
	`, id, models.SettlementStatusCompleted, completedAt)
	return err
}

// TodayCompletedTotal sums settlement totals completed today.
func (r *SettlementRepo) TodayCompletedTotal(ctx context.Context) (decimal.Decimal, error) {
	var s string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)::text FROM settlement_records
		WHERE status = $1 AND completed_at::date = CURRENT_DATE
	`, models.SettlementStatusCompleted).Scan(&s)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

// HistoryByUser pages through a user's settlements, newest first.
func (r *SettlementRepo) HistoryByUser(ctx context.Context, userID string, req models.PageRequest) ([]models.Settlement, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM settlement_records WHERE user_id = $1
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, total_amount::text, status, created_at, completed_at
		FROM settlement_records WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, req.PageSize, req.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Settlement
	for rows.Next() {
		var s models.Settlement
		var amountStr string
		if err := rows.Scan(&s.ID, &s.UserID, &amountStr, &s.Status, &s.CreatedAt, &s.CompletedAt); err != nil {
			return nil, 0, err
		}
		if s.TotalAmount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}
