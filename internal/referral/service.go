package referral

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/invitelink/backend/internal/models"
)

var (
	// ErrUnknownLinkCode is returned when registering against a link code no
	// inviter ever issued.
	ErrUnknownLinkCode = errors.New("unknown link code")
	// ErrAlreadyRegistered is returned when the invitee already has a node.
	ErrAlreadyRegistered = errors.New("invitee already registered")
	// ErrSelfReferral is returned when a user registers through their own link.
	ErrSelfReferral = errors.New("cannot register through own link")
)

// ReferralStore is the slice of the referral repository the service needs.
type ReferralStore interface {
	CreateLink(ctx context.Context, l *models.InviteLink) error
	GetLinkByCode(ctx context.Context, code string) (*models.InviteLink, error)
	CreateNode(ctx context.Context, n *models.ReferralNode) error
	GetNodeByInviteeID(ctx context.Context, inviteeID string) (*models.ReferralNode, error)
}

// UserStore bootstraps user rows so later rate lookups can clamp to the
// account-creation time.
type UserStore interface {
	Ensure(ctx context.Context, userID, username string) error
}

type Service interface {
	CreateLink(ctx context.Context, inviterID string) (*models.InviteLink, error)
	Register(ctx context.Context, inviteeID, username, linkCode string) (*models.ReferralNode, error)
}

type service struct {
	referrals ReferralStore
	users     UserStore
}

func NewService(referrals ReferralStore, users UserStore) Service {
	return &service{referrals: referrals, users: users}
}

var _ Service = (*service)(nil)

func newLinkCode() string {
	return uuid.New().String()[:8]
}

func (s *service) CreateLink(ctx context.Context, inviterID string) (*models.InviteLink, error) {
	if err := s.users.Ensure(ctx, inviterID, ""); err != nil {
		return nil, err
	}
	l := &models.InviteLink{InviterID: inviterID, LinkCode: newLinkCode()}
	if err := s.referrals.CreateLink(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Register enrolls an invitee under a link. The new node points at the
// inviter's own node when the inviter was themselves invited, making the
// ancestor chain walkable; the pointer is never touched again, so the chain
// stays acyclic.
func (s *service) Register(ctx context.Context, inviteeID, username, linkCode string) (*models.ReferralNode, error) {
	link, err := s.referrals.GetLinkByCode(ctx, linkCode)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrUnknownLinkCode
	}
	if link.InviterID == inviteeID {
		return nil, ErrSelfReferral
	}

	existing, err := s.referrals.GetNodeByInviteeID(ctx, inviteeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}

	node := &models.ReferralNode{
		InviterID: link.InviterID,
		InviteeID: inviteeID,
		LinkCode:  link.LinkCode,
	}
	parent, err := s.referrals.GetNodeByInviteeID(ctx, link.InviterID)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		node.ParentID = &parent.ID
	}

	if err := s.users.Ensure(ctx, inviteeID, username); err != nil {
		return nil, err
	}
	if err := s.referrals.CreateNode(ctx, node); err != nil {
		// Concurrent registration of the same invitee loses on the unique index.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	return node, nil
}
