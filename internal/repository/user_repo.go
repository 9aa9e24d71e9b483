package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invitelink/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Ensure inserts the user if absent. Registration calls this so the
// calculator can resolve the invitee's account-creation time later.
func (r *UserRepo) Ensure(ctx context.Context, userID, username string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, username)
	return err
}

// GetByUserID returns (nil, nil) when the user is unknown.
func (r *UserRepo) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, COALESCE(username, ''), created_at, is_active
		FROM users WHERE user_id = $1
	`, userID).Scan(&u.ID, &u.UserID, &u.Username, &u.CreatedAt, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
