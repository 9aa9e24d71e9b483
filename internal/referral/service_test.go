package referral

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/invitelink/backend/internal/models"
)

type memReferrals struct {
	links  map[string]*models.InviteLink // by link code
	nodes  map[string]*models.ReferralNode
	nextID int64

	// invitee ids whose insert collides on the unique index even though the
	// lookup saw nothing, as under a concurrent registration
	racingInvitees map[string]bool
}

func newMemReferrals() *memReferrals {
	return &memReferrals{
		links: map[string]*models.InviteLink{},
		nodes: map[string]*models.ReferralNode{},
	}
}

func (m *memReferrals) CreateLink(_ context.Context, l *models.InviteLink) error {
	m.nextID++
	l.ID = m.nextID
	m.links[l.LinkCode] = l
	return nil
}

func (m *memReferrals) GetLinkByCode(_ context.Context, code string) (*models.InviteLink, error) {
	return m.links[code], nil
}

func (m *memReferrals) CreateNode(_ context.Context, n *models.ReferralNode) error {
	if _, ok := m.nodes[n.InviteeID]; ok || m.racingInvitees[n.InviteeID] {
		return &pgconn.PgError{Code: "23505"}
	}
	m.nextID++
	n.ID = m.nextID
	m.nodes[n.InviteeID] = n
	return nil
}

func (m *memReferrals) GetNodeByInviteeID(_ context.Context, inviteeID string) (*models.ReferralNode, error) {
	return m.nodes[inviteeID], nil
}

type memUsers struct {
	ensured map[string]string
}

func (m *memUsers) Ensure(_ context.Context, userID, username string) error {
	if m.ensured == nil {
		m.ensured = map[string]string{}
	}
	m.ensured[userID] = username
	return nil
}

func register(t *testing.T, svc Service, inviteeID, linkCode string) *models.ReferralNode {
	t.Helper()
	node, err := svc.Register(context.Background(), inviteeID, inviteeID, linkCode)
	if err != nil {
		t.Fatalf("Register(%s, %s): %v", inviteeID, linkCode, err)
	}
	return node
}

func TestCreateLink(t *testing.T) {
	referrals := newMemReferrals()
	users := &memUsers{}
	svc := NewService(referrals, users)

	l, err := svc.CreateLink(context.Background(), "A")
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if len(l.LinkCode) != 8 {
		t.Errorf("link code length: got %d, want 8", len(l.LinkCode))
	}
	if l.InviterID != "A" {
		t.Errorf("inviter: got %s, want A", l.InviterID)
	}
	if _, ok := users.ensured["A"]; !ok {
		t.Error("inviter user row was not ensured")
	}

	l2, err := svc.CreateLink(context.Background(), "A")
	if err != nil {
		t.Fatalf("second CreateLink: %v", err)
	}
	if l2.LinkCode == l.LinkCode {
		t.Error("expected distinct codes for distinct links")
	}
}

func TestRegisterRoot(t *testing.T) {
	referrals := newMemReferrals()
	svc := NewService(referrals, &memUsers{})

	link, _ := svc.CreateLink(context.Background(), "A")
	node := register(t, svc, "B", link.LinkCode)

	if node.InviterID != "A" || node.InviteeID != "B" {
		t.Errorf("node edge: got %s->%s, want A->B", node.InviterID, node.InviteeID)
	}
	if node.ParentID != nil {
		t.Errorf("root inviter has no node, ParentID should be nil, got %d", *node.ParentID)
	}
	if node.LinkCode != link.LinkCode {
		t.Errorf("node link code: got %s, want %s", node.LinkCode, link.LinkCode)
	}
}

func TestRegisterChain(t *testing.T) {
	referrals := newMemReferrals()
	svc := NewService(referrals, &memUsers{})

	linkA, _ := svc.CreateLink(context.Background(), "A")
	nodeB := register(t, svc, "B", linkA.LinkCode)

	linkB, _ := svc.CreateLink(context.Background(), "B")
	nodeC := register(t, svc, "C", linkB.LinkCode)

	if nodeC.ParentID == nil {
		t.Fatal("C's node must point at B's node")
	}
	if *nodeC.ParentID != nodeB.ID {
		t.Errorf("C's parent: got %d, want %d", *nodeC.ParentID, nodeB.ID)
	}
}

func TestRegisterUnknownCode(t *testing.T) {
	svc := NewService(newMemReferrals(), &memUsers{})
	_, err := svc.Register(context.Background(), "B", "B", "nope1234")
	if !errors.Is(err, ErrUnknownLinkCode) {
		t.Fatalf("expected ErrUnknownLinkCode, got %v", err)
	}
}

func TestRegisterDuplicateInvitee(t *testing.T) {
	referrals := newMemReferrals()
	svc := NewService(referrals, &memUsers{})

	linkA, _ := svc.CreateLink(context.Background(), "A")
	linkX, _ := svc.CreateLink(context.Background(), "X")
	register(t, svc, "B", linkA.LinkCode)

	_, err := svc.Register(context.Background(), "B", "B", linkX.LinkCode)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterUniqueViolationMapsToAlreadyRegistered(t *testing.T) {
	// Simulates the race where the pre-check misses but the unique index
	// catches the duplicate insert.
	referrals := newMemReferrals()
	svc := NewService(referrals, &memUsers{})

	link, _ := svc.CreateLink(context.Background(), "A")
	referrals.racingInvitees = map[string]bool{"B": true}

	_, err := svc.Register(context.Background(), "B", "B", link.LinkCode)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterSelf(t *testing.T) {
	referrals := newMemReferrals()
	svc := NewService(referrals, &memUsers{})

	link, _ := svc.CreateLink(context.Background(), "A")
	_, err := svc.Register(context.Background(), "A", "A", link.LinkCode)
	if !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}
}
