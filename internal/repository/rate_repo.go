package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

// RateRepo is the append-only commission rate history. There is no update or
// delete: every admin change appends a new record.
type RateRepo struct {
	pool *pgxpool.Pool
}

func NewRateRepo(pool *pgxpool.Pool) *RateRepo {
	return &RateRepo{pool: pool}
}

func (r *RateRepo) Append(ctx context.Context, rec *models.RateRecord) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO commission_rate_history (admin_id, rate, effective_at, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, rec.AdminID, rec.Rate.String(), rec.EffectiveAt, rec.Description).Scan(&rec.ID, &rec.CreatedAt)
}

// EffectiveAt returns the record with the greatest effective_at not exceeding
// ts. Ties on effective_at resolve to the highest id, so the most recently
// inserted record wins. Returns (nil, nil) when no record predates ts.
func (r *RateRepo) EffectiveAt(ctx context.Context, ts time.Time) (*models.RateRecord, error) {
	var rec models.RateRecord
	var rateStr string
	err := r.pool.QueryRow(ctx, `
		SELECT id, admin_id, rate::text, effective_at, created_at, COALESCE(description, '')
		FROM commission_rate_history
		WHERE effective_at <= $1
		ORDER BY effective_at DESC, id DESC
		LIMIT 1
	`, ts).Scan(&rec.ID, &rec.AdminID, &rateStr, &rec.EffectiveAt, &rec.CreatedAt, &rec.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Rate, err = decimal.NewFromString(rateStr); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RateRepo) List(ctx context.Context) ([]*models.RateRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, admin_id, rate::text, effective_at, created_at, COALESCE(description, '')
		FROM commission_rate_history ORDER BY effective_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.RateRecord
	for rows.Next() {
		var rec models.RateRecord
		var rateStr string
		if err := rows.Scan(&rec.ID, &rec.AdminID, &rateStr, &rec.EffectiveAt, &rec.CreatedAt, &rec.Description); err != nil {
			return nil, err
		}
		if rec.Rate, err = decimal.NewFromString(rateStr); err != nil {
			return nil, err
		}
		list = append(list, &rec)
	}
	return list, rows.Err()
}
