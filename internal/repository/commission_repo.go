package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

// CommissionRepo is the commission ledger. Records are append-only; the only
// mutation ever applied is flipping is_settled inside a settlement
// transaction.
type CommissionRepo struct {
	pool *pgxpool.Pool
}

func NewCommissionRepo(pool *pgxpool.Pool) *CommissionRepo {
	return &CommissionRepo{pool: pool}
}

const commissionColumns = `id, inviter_id, invitee_id, amount::text, order_id, status, created_at, is_settled, used_rate::text, link_code`

// InsertBatch persists the full set of records for one order in a single
// transaction. Either every record is written or none is.
func (r *CommissionRepo) InsertBatch(ctx context.Context, recs []models.CommissionRecord) ([]models.CommissionRecord, error) {
	if len(recs) == 0 {
		return recs, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	for i := range recs {
		if err := r.InsertTx(ctx, tx, &recs[i]); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return recs, nil
}

// InsertTx inserts one record inside the given transaction.
func (r *CommissionRepo) InsertTx(ctx context.Context, tx pgx.Tx, c *models.CommissionRecord) error {
	return tx.QueryRow(ctx, `
		INSERT INTO commission_records (inviter_id, invitee_id, amount, order_id, status, is_settled, used_rate, link_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, c.InviterID, c.InviteeID, c.Amount.String(), c.OrderID, c.Status, c.IsSettled, c.UsedRate.String(), c.LinkCode).Scan(&c.ID, &c.CreatedAt)
}

// LockUnsettled returns the inviter's unsettled records with row locks held,
// so two concurrent settlements for the same user serialize on these rows.
func (r *CommissionRepo) LockUnsettled(ctx context.Context, tx pgx.Tx, inviterID string) ([]models.CommissionRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+commissionColumns+`
		FROM commission_records
		WHERE inviter_id = $1 AND NOT is_settled
		ORDER BY id
		FOR UPDATE
	`, inviterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCommissions(rows)
}

// MarkSettled flips exactly the given records. Settling by id rather than by
// inviter keeps a commission committed between the lock and this update from
// being swept without having been counted.
func (r *CommissionRepo) MarkSettled(ctx context.Context, tx pgx.Tx, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := tx.Exec(ctx, `
		UPDATE commission_records SET is_settled = true
		WHERE id = ANY($1) AND NOT is_settled
	`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UnsettledSum is the inviter's settleable balance. A plain read outside any
// settlement transaction; the settlement engine recomputes under lock.
func (r *CommissionRepo) UnsettledSum(ctx context.Context, inviterID string) (decimal.Decimal, error) {
	var s string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM commission_records
		WHERE inviter_id = $1 AND NOT is_settled
	`, inviterID).Scan(&s)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

// TodayTotal sums the commission amounts created today.
func (r *CommissionRepo) TodayTotal(ctx context.Context) (decimal.Decimal, error) {
	var s string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM commission_records
		WHERE created_at::date = CURRENT_DATE
	`).Scan(&s)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

// LinkDetail returns the total/settled/unsettled breakdown for one link.
func (r *CommissionRepo) LinkDetail(ctx context.Context, linkCode string) (*models.LinkDetail, error) {
	var totalStr, settledStr string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text,
			COALESCE(SUM(amount) FILTER (WHERE is_settled), 0)::text
		FROM commission_records WHERE link_code = $1
	`, linkCode).Scan(&totalStr, &settledStr)
	if err != nil {
		return nil, err
	}
	d := &models.LinkDetail{LinkCode: linkCode}
	if d.TotalCommission, err = decimal.NewFromString(totalStr); err != nil {
		return nil, err
	}
	if d.SettledCommission, err = decimal.NewFromString(settledStr); err != nil {
		return nil, err
	}
	d.UnsettledCommission = d.TotalCommission.Sub(d.SettledCommission)
	return d, nil
}

// ListByInviter pages through a user's commission records, newest first.
func (r *CommissionRepo) ListByInviter(ctx context.Context, inviterID string, req models.PageRequest) ([]models.CommissionRecord, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM commission_records WHERE inviter_id = $1
	`, inviterID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+commissionColumns+`
		FROM commission_records WHERE inviter_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, inviterID, req.PageSize, req.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list, err := scanCommissions(rows)
	return list, total, err
}

func scanCommissions(rows pgx.Rows) ([]models.CommissionRecord, error) {
	var list []models.CommissionRecord
	for rows.Next() {
		var c models.CommissionRecord
		var amountStr, rateStr string
		if err := rows.Scan(&c.ID, &c.InviterID, &c.InviteeID, &amountStr, &c.OrderID, &c.Status, &c.CreatedAt, &c.IsSettled, &rateStr, &c.LinkCode); err != nil {
			return nil, err
		}
		var err error
		if c.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, err
		}
		if c.UsedRate, err = decimal.NewFromString(rateStr); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
