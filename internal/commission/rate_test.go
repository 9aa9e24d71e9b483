package commission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invitelink/backend/internal/models"
)

func TestResolveRate(t *testing.T) {
	t0 := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)
	t2 := t0.Add(48 * time.Hour)

	history := []models.RateRecord{
		rateAt(1, "0.01", t0),
		rateAt(2, "0.02", t1),
		rateAt(3, "0.03", t2),
	}

	cases := []struct {
		name   string
		recs   []models.RateRecord
		ts     time.Time
		wantID int64
	}{
		{"between records picks the earlier", history, t1.Add(time.Hour), 2},
		{"after all picks the last", history, t2.Add(time.Hour), 3},
		{"exactly at effective_at is inclusive", history, t1, 2},
		{"before all finds nothing", history, t0.Add(-time.Hour), 0},
		{"empty history finds nothing", nil, t1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveRate(tc.recs, tc.ts)
			if tc.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.wantID, got.ID)
		})
	}
}

func TestResolveRateTieBreak(t *testing.T) {
	// Two records effective at the same instant: the higher id (the most
	// recently inserted) wins.
	at := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	history := []models.RateRecord{
		rateAt(7, "0.05", at),
		rateAt(4, "0.02", at),
	}
	got := ResolveRate(history, at.Add(time.Minute))
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "0.05", got.Rate.String())
}
