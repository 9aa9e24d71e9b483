package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PageRequest carries pagination plus the optional keyword and date-range
// filters shared by the listing queries.
type PageRequest struct {
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	Keyword   string     `json:"keyword,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Normalize clamps page/page_size to sane values.
func (p *PageRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int64 `json:"total_pages"`
}

func NewPageResponse[T any](data []T, total int64, req PageRequest) PageResponse[T] {
	req.Normalize()
	pages := total / int64(req.PageSize)
	if total%int64(req.PageSize) != 0 {
		pages++
	}
	return PageResponse[T]{
		Data:       data,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: pages,
	}
}

// LinkStats is the dashboard roll-up over all links.
type LinkStats struct {
	TotalCreated    int64           `json:"total_created"`
	TodayCommission decimal.Decimal `json:"today_commission"`
	TodaySettled    decimal.Decimal `json:"today_settled"`
}

// LinkSummary is one row in the link listings: a link plus its commission
// aggregates.
type LinkSummary struct {
	LinkCode            string          `json:"link_code"`
	InviterID           string          `json:"inviter_id"`
	CreatedAt           time.Time       `json:"created_at"`
	InviteeCount        int64           `json:"invitee_count"`
	TotalCommission     decimal.Decimal `json:"total_commission"`
	SettledCommission   decimal.Decimal `json:"settled_commission"`
	UnsettledCommission decimal.Decimal `json:"unsettled_commission"`
}

// LinkDetail is the per-link commission breakdown.
type LinkDetail struct {
	LinkCode            string          `json:"link_code"`
	TotalCommission     decimal.Decimal `json:"total_commission"`
	SettledCommission   decimal.Decimal `json:"settled_commission"`
	UnsettledCommission decimal.Decimal `json:"unsettled_commission"`
}
