package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

// ---------------------------------------------------------------------------
// fakeTx satisfies pgx.Tx and records commit/rollback so tests can assert
// transaction outcomes. The stores below are in-memory, so no SQL runs.
// ---------------------------------------------------------------------------

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) { return f, nil }
func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}
func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}
func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (f *fakeTx) Conn() *pgx.Conn { return nil }

type fakeDB struct {
	tx *fakeTx
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

// ---------------------------------------------------------------------------
// In-memory commission and settlement stores.
// ---------------------------------------------------------------------------

type memCommissions struct {
	recs   []*models.CommissionRecord
	nextID int64

	// runs after LockUnsettled snapshots its rows, standing in for a
	// concurrent calculator committing mid-settlement
	afterLock func()
}

func (m *memCommissions) add(inviterID, amount string, settled bool) {
	m.nextID++
	m.recs = append(m.recs, &models.CommissionRecord{
		ID:        m.nextID,
		InviterID: inviterID,
		InviteeID: "someone",
		Amount:    decimal.RequireFromString(amount),
		Status:    models.CommissionStatusConfirmed,
		IsSettled: settled,
	})
}

func (m *memCommissions) LockUnsettled(_ context.Context, _ pgx.Tx, inviterID string) ([]models.CommissionRecord, error) {
	var out []models.CommissionRecord
	for _, r := range m.recs {
		if r.InviterID == inviterID && !r.IsSettled {
			out = append(out, *r)
		}
	}
	if m.afterLock != nil {
		m.afterLock()
	}
	return out, nil
}

func (m *memCommissions) MarkSettled(_ context.Context, _ pgx.Tx, ids []int64) (int64, error) {
	claimed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		claimed[id] = true
	}
	var n int64
	for _, r := range m.recs {
		if claimed[r.ID] && !r.IsSettled {
			r.IsSettled = true
			n++
		}
	}
	return n, nil
}

func (m *memCommissions) InsertTx(_ context.Context, _ pgx.Tx, rec *models.CommissionRecord) error {
	m.nextID++
	rec.ID = m.nextID
	cp := *rec
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *memCommissions) unsettledSum(inviterID string) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range m.recs {
		if r.InviterID == inviterID && !r.IsSettled {
			sum = sum.Add(r.Amount)
		}
	}
	return sum
}

type memSettlements struct {
	created      []*models.Settlement
	nextID       int64
	failComplete bool
}

func (m *memSettlements) CreateProcessing(_ context.Context, _ pgx.Tx, userID string, total decimal.Decimal) (*models.Settlement, error) {
	m.nextID++
	s := &models.Settlement{
		ID:          m.nextID,
		UserID:      userID,
		TotalAmount: total,
		Status:      models.SettlementStatusProcessing,
		CreatedAt:   time.Now(),
	}
	m.created = append(m.created, s)
	return s, nil
}

func (m *memSettlements) Complete(_ context.Context, _ pgx.Tx, id int64, completedAt time.Time) error {
	if m.failComplete {
		return errors.New("simulated write failure")
	}
	for _, s := range m.created {
		if s.ID == id {
			s.Status = models.SettlementStatusCompleted
			s.CompletedAt = &completedAt
		}
	}
	return nil
}

func newTestEngine(commissions *memCommissions, settlements *memSettlements, strategyName string) (*Engine, *fakeDB) {
	db := &fakeDB{}
	strategy := ForName(strategyName, commissions, settlements)
	return NewEngine(db, commissions, strategy), db
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSettleConservation(t *testing.T) {
	commissions := &memCommissions{}
	commissions.add("U", "100.50", false)
	commissions.add("U", "49.50", false)
	commissions.add("U", "999.00", true) // already settled, must not be claimed again
	commissions.add("V", "10.00", false) // other user, untouched
	settlements := &memSettlements{}
	engine, db := newTestEngine(commissions, settlements, "default")

	s, err := engine.Settle(context.Background(), "U")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if s.TotalAmount.String() != "150" {
		t.Errorf("settlement total: got %s, want 150", s.TotalAmount)
	}
	if s.Status != models.SettlementStatusCompleted || s.CompletedAt == nil {
		t.Errorf("settlement not completed: status=%s completed_at=%v", s.Status, s.CompletedAt)
	}
	if !db.tx.committed {
		t.Error("transaction was not committed")
	}
	if len(settlements.created) != 1 {
		t.Fatalf("expected exactly 1 settlement record, got %d", len(settlements.created))
	}
	if !commissions.unsettledSum("U").IsZero() {
		t.Errorf("post-settlement unsettled sum for U: got %s, want 0", commissions.unsettledSum("U"))
	}
	if commissions.unsettledSum("V").String() != "10" {
		t.Errorf("other user's records must be untouched, got %s", commissions.unsettledSum("V"))
	}
}

func TestSettleSkipsCommissionArrivingMidSettlement(t *testing.T) {
	commissions := &memCommissions{}
	commissions.add("U", "100.00", false)
	commissions.afterLock = func() {
		commissions.afterLock = nil
		commissions.add("U", "50.00", false)
	}
	settlements := &memSettlements{}
	engine, _ := newTestEngine(commissions, settlements, "default")

	s, err := engine.Settle(context.Background(), "U")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if s.TotalAmount.String() != "100" {
		t.Errorf("settlement total: got %s, want 100 (late record must not be counted)", s.TotalAmount)
	}
	if commissions.unsettledSum("U").String() != "50" {
		t.Errorf("late record must stay unsettled for the next run, unsettled sum got %s", commissions.unsettledSum("U"))
	}
}

func TestSettleSecondCallFindsNothing(t *testing.T) {
	commissions := &memCommissions{}
	commissions.add("U", "50.00", false)
	settlements := &memSettlements{}
	engine, _ := newTestEngine(commissions, settlements, "default")

	if _, err := engine.Settle(context.Background(), "U"); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	_, err := engine.Settle(context.Background(), "U")
	if !errors.Is(err, ErrNoAvailableCommission) {
		t.Fatalf("second Settle: expected ErrNoAvailableCommission, got %v", err)
	}
	if len(settlements.created) != 1 {
		t.Errorf("second call must not create a settlement, got %d", len(settlements.created))
	}
}

func TestSettleNoRecords(t *testing.T) {
	engine, db := newTestEngine(&memCommissions{}, &memSettlements{}, "default")
	_, err := engine.Settle(context.Background(), "ghost")
	if !errors.Is(err, ErrNoAvailableCommission) {
		t.Fatalf("expected ErrNoAvailableCommission, got %v", err)
	}
	if db.tx.committed {
		t.Error("nothing to settle must not commit")
	}
}

func TestSettleEmptyUserID(t *testing.T) {
	engine, _ := newTestEngine(&memCommissions{}, &memSettlements{}, "default")
	if _, err := engine.Settle(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestSettleFailureRollsBack(t *testing.T) {
	commissions := &memCommissions{}
	commissions.add("U", "75.00", false)
	settlements := &memSettlements{failComplete: true}
	engine, db := newTestEngine(commissions, settlements, "default")

	_, err := engine.Settle(context.Background(), "U")
	var serr *SettlementError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SettlementError, got %v", err)
	}
	if serr.UserID != "U" {
		t.Errorf("error user: got %s, want U", serr.UserID)
	}
	if db.tx.committed {
		t.Error("failed settlement must not commit")
	}
	if !db.tx.rolledBack {
		t.Error("failed settlement must roll back")
	}
}

func TestStepStrategyBonus(t *testing.T) {
	// 1500 available, threshold 1000, 5% on the excess: 25 bonus, 1525 total.
	commissions := &memCommissions{}
	commissions.add("U", "1500.00", false)
	settlements := &memSettlements{}
	engine, _ := newTestEngine(commissions, settlements, "step")

	s, err := engine.Settle(context.Background(), "U")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if s.TotalAmount.String() != "1525" {
		t.Errorf("settlement total: got %s, want 1525", s.TotalAmount)
	}

	var bonus *models.CommissionRecord
	for _, r := range commissions.recs {
		if r.LinkCode == "BONUS_U" {
			bonus = r
		}
	}
	if bonus == nil {
		t.Fatal("expected a bonus commission record")
	}
	if bonus.Amount.String() != "25" {
		t.Errorf("bonus amount: got %s, want 25", bonus.Amount)
	}
	if !bonus.IsSettled {
		t.Error("bonus record must be swept into the settlement")
	}
}

func TestStepStrategyBelowThreshold(t *testing.T) {
	commissions := &memCommissions{}
	commissions.add("U", "800.00", false)
	settlements := &memSettlements{}
	engine, _ := newTestEngine(commissions, settlements, "step")

	s, err := engine.Settle(context.Background(), "U")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if s.TotalAmount.String() != "800" {
		t.Errorf("settlement total: got %s, want 800 (no bonus below threshold)", s.TotalAmount)
	}
	if len(commissions.recs) != 1 {
		t.Errorf("no bonus record expected below threshold, got %d records", len(commissions.recs))
	}
}

func TestForName(t *testing.T) {
	if _, ok := ForName("", nil, nil).(*DefaultStrategy); !ok {
		t.Error("empty name must select the default strategy")
	}
	if _, ok := ForName("step", nil, nil).(*StepStrategy); !ok {
		t.Error("step name must select the step strategy")
	}
	if _, ok := ForName("unknown", nil, nil).(*DefaultStrategy); !ok {
		t.Error("unknown name must fall back to the default strategy")
	}
}
