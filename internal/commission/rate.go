package commission

import (
	"time"

	"github.com/invitelink/backend/internal/models"
)

// ResolveRate selects the rate record in effect at ts: the one with the
// greatest effective_at not exceeding ts. Records with equal effective_at
// resolve to the highest id, so the most recently inserted one wins. Returns
// nil when no record predates ts.
func ResolveRate(recs []models.RateRecord, ts time.Time) *models.RateRecord {
	var best *models.RateRecord
	for i := range recs {
		r := &recs[i]
		if r.EffectiveAt.After(ts) {
			continue
		}
		if best == nil || r.EffectiveAt.After(best.EffectiveAt) ||
			(r.EffectiveAt.Equal(best.EffectiveAt) && r.ID > best.ID) {
			best = r
		}
	}
	return best
}
