package models

import (
	"time"
)

// InviteLink is a shareable invitation code owned by an inviter. One link can
// enroll many invitees; each enrollment becomes a ReferralNode.
type InviteLink struct {
	ID        int64     `json:"id"`
	InviterID string    `json:"inviter_id"`
	LinkCode  string    `json:"link_code"`
	CreatedAt time.Time `json:"created_at"`
}

// ReferralNode is one entry in the referral forest: exactly one node per
// invitee, pointing back at the inviter's own node (nil ParentID for roots).
// Nodes are written once at registration and never mutated, so the parent
// chain cannot form a cycle.
type ReferralNode struct {
	ID        int64     `json:"id"`
	InviterID string    `json:"inviter_id"`
	InviteeID string    `json:"invitee_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	LinkCode  string    `json:"link_code"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}
