package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

// ReferralRepo persists invite links and the referral forest. Nodes are
// insert-only; the parent pointer is fixed at creation and never updated.
type ReferralRepo struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

func (r *ReferralRepo) CreateLink(ctx context.Context, l *models.InviteLink) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO invite_links (inviter_id, link_code)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, l.InviterID, l.LinkCode).Scan(&l.ID, &l.CreatedAt)
}

// GetLinkByCode returns (nil, nil) when no link carries the code.
func (r *ReferralRepo) GetLinkByCode(ctx context.Context, code string) (*models.InviteLink, error) {
	var l models.InviteLink
	err := r.pool.QueryRow(ctx, `
		SELECT id, inviter_id, link_code, created_at
		FROM invite_links WHERE link_code = $1
	`, code).Scan(&l.ID, &l.InviterID, &l.LinkCode, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ReferralRepo) CreateNode(ctx context.Context, n *models.ReferralNode) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO referral_nodes (inviter_id, invitee_id, parent_id, link_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, n.InviterID, n.InviteeID, n.ParentID, n.LinkCode).Scan(&n.ID, &n.CreatedAt)
}

// GetNodeByInviteeID returns (nil, nil) when the invitee has no node, which
// the calculator treats as "no referral chain".
func (r *ReferralRepo) GetNodeByInviteeID(ctx context.Context, inviteeID string) (*models.ReferralNode, error) {
	return r.scanNode(r.pool.QueryRow(ctx, `
		SELECT id, inviter_id, invitee_id, parent_id, link_code, created_at
		FROM referral_nodes WHERE invitee_id = $1
	`, inviteeID))
}

// GetNodeByID returns (nil, nil) when the node does not exist.
func (r *ReferralRepo) GetNodeByID(ctx context.Context, id int64) (*models.ReferralNode, error) {
	return r.scanNode(r.pool.QueryRow(ctx, `
		SELECT id, inviter_id, invitee_id, parent_id, link_code, created_at
		FROM referral_nodes WHERE id = $1
	`, id))
}

func (r *ReferralRepo) scanNode(row pgx.Row) (*models.ReferralNode, error) {
	var n models.ReferralNode
	err := row.Scan(&n.ID, &n.InviterID, &n.InviteeID, &n.ParentID, &n.LinkCode, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *ReferralRepo) CountLinks(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invite_links`).Scan(&n)
	return n, err
}

// UserLinks lists one user's invite links with their commission aggregates.
func (r *ReferralRepo) UserLinks(ctx context.Context, userID string, req models.PageRequest) ([]models.LinkSummary, int64, error) {
	where, args := linkFilters(req, []string{"l.inviter_id = $1"}, []any{userID}, false)
	return r.queryLinks(ctx, where, args, req)
}

// AllLinks lists every invite link; the keyword filter matches link_code or
// inviter_id.
func (r *ReferralRepo) AllLinks(ctx context.Context, req models.PageRequest) ([]models.LinkSummary, int64, error) {
	where, args := linkFilters(req, nil, nil, true)
	return r.queryLinks(ctx, where, args, req)
}

func linkFilters(req models.PageRequest, conds []string, args []any, keywordMatchesInviter bool) (string, []any) {
	if req.Keyword != "" {
		args = append(args, "%"+req.Keyword+"%")
		n := len(args)
		if keywordMatchesInviter {
			conds = append(conds, fmt.Sprintf("(l.link_code ILIKE $%d OR l.inviter_id ILIKE $%d)", n, n))
		} else {
			conds = append(conds, fmt.Sprintf("l.link_code ILIKE $%d", n))
		}
	}
	if req.StartDate != nil {
		args = append(args, *req.StartDate)
		conds = append(conds, fmt.Sprintf("l.created_at >= $%d", len(args)))
	}
	if req.EndDate != nil {
		args = append(args, *req.EndDate)
		conds = append(conds, fmt.Sprintf("l.created_at <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *ReferralRepo) queryLinks(ctx context.Context, where string, args []any, req models.PageRequest) ([]models.LinkSummary, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invite_links l `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	pageArgs := append(args, req.PageSize, req.Offset())
	limitPos := len(args) + 1
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT l.link_code, l.inviter_id, l.created_at,
			(SELECT COUNT(*) FROM referral_nodes n WHERE n.link_code = l.link_code),
			COALESCE((SELECT SUM(c.amount) FROM commission_records c WHERE c.link_code = l.link_code), 0)::text,
			COALESCE((SELECT SUM(c.amount) FROM commission_records c WHERE c.link_code = l.link_code AND c.is_settled), 0)::text
		FROM invite_links l
		%s
		ORDER BY l.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, limitPos, limitPos+1), pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.LinkSummary
	for rows.Next() {
		var s models.LinkSummary
		var totalStr, settledStr string
		if err := rows.Scan(&s.LinkCode, &s.InviterID, &s.CreatedAt, &s.InviteeCount, &totalStr, &settledStr); err != nil {
			return nil, 0, err
		}
		if s.TotalCommission, err = decimal.NewFromString(totalStr); err != nil {
			return nil, 0, err
		}
		if s.SettledCommission, err = decimal.NewFromString(settledStr); err != nil {
			return nil, 0, err
		}
		s.UnsettledCommission = s.TotalCommission.Sub(s.SettledCommission)
		list = append(list, s)
	}
	return list, total, rows.Err()
}
