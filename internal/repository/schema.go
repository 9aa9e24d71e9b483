package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables and indexes the repositories depend on.
// Statements are idempotent so startup can run this unconditionally.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(50) UNIQUE NOT NULL,
			username VARCHAR(100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS invite_links (
			id BIGSERIAL PRIMARY KEY,
			inviter_id VARCHAR(50) NOT NULL,
			link_code VARCHAR(50) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invite_links_inviter_created ON invite_links (inviter_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS referral_nodes (
			id BIGSERIAL PRIMARY KEY,
			inviter_id VARCHAR(50) NOT NULL,
			invitee_id VARCHAR(50) UNIQUE NOT NULL,
			parent_id BIGINT REFERENCES referral_nodes(id),
			link_code VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referral_nodes_link_code ON referral_nodes (link_code)`,
		`CREATE TABLE IF NOT EXISTS commission_config (
			id BIGSERIAL PRIMARY KEY,
			key VARCHAR(50) UNIQUE NOT NULL,
			value VARCHAR(255) NOT NULL,
			description VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS commission_rate_history (
			id BIGSERIAL PRIMARY KEY,
			admin_id VARCHAR(50) NOT NULL,
			rate NUMERIC(8,4) NOT NULL,
			effective_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			description VARCHAR(255)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_history_effective_at ON commission_rate_history (effective_at)`,
		`CREATE TABLE IF NOT EXISTS commission_records (
			id BIGSERIAL PRIMARY KEY,
			inviter_id VARCHAR(50) NOT NULL,
			invitee_id VARCHAR(50) NOT NULL,
			amount NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
			order_id VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			is_settled BOOLEAN NOT NULL DEFAULT false,
			used_rate NUMERIC(8,4) NOT NULL,
			link_code VARCHAR(50) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commission_records_created_at ON commission_records (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_commission_records_link_code ON commission_records (link_code)`,
		`CREATE INDEX IF NOT EXISTS idx_commission_records_inviter_unsettled ON commission_records (inviter_id) WHERE NOT is_settled`,
		`CREATE TABLE IF NOT EXISTS settlement_records (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(50) NOT NULL,
			total_amount NUMERIC(14,2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'processing',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_records_user_id ON settlement_records (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_records_completed_at ON settlement_records (completed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
