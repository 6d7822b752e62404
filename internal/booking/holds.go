package booking

import (
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// Hold reconciliation helpers.  The repository already filters expired
// rows in SQL, but expiry is a wall-clock fact, not a storage fact: a
// row whose expires_at has passed must stop suppressing slots even if
// the sweep has not deleted it yet.  Everything here therefore
// re-filters by time before holds reach the engine.

// ActiveHolds returns the holds still counting against availability at
// the given instant, preserving order.
func ActiveHolds(holds []model.TempHold, now time.Time) []model.TempHold {
	out := make([]model.TempHold, 0, len(holds))
	for _, h := range holds {
		if h.Active(now) {
			out = append(out, h)
		}
	}
	return out
}

// NewestActiveHold picks the hold a returning owner should resume with:
// the non-expired hold with the freshest expires_at.  Multiple rows can
// exist transiently when a re-hold raced a release; only the newest is
// trusted.  Returns nil when the owner has no live hold.
func NewestActiveHold(holds []model.TempHold, owner model.Owner, now time.Time) *model.TempHold {
	var best *model.TempHold
	for i := range holds {
		h := &holds[i]
		if !h.Active(now) || !sameOwner(h, owner) {
			continue
		}
		if best == nil || h.ExpiresAt.After(best.ExpiresAt) {
			best = h
		}
	}
	return best
}

func sameOwner(h *model.TempHold, o model.Owner) bool {
	if o.UserID != nil {
		return h.UserID != nil && *h.UserID == *o.UserID
	}
	return o.GuestID != "" && h.GuestID == o.GuestID
}

// HoldIntervals reduces live holds to day-relative busy intervals for
// the engine.  Expired holds are skipped; ranges outside the day are
// dropped.
func HoldIntervals(holds []model.TempHold, dayStart time.Time, now time.Time) []Interval {
	out := make([]Interval, 0, len(holds))
	for _, h := range holds {
		if !h.Active(now) {
			continue
		}
		if iv, ok := ClampToDay(h.StartsAt, h.EndsAt, dayStart); ok {
			out = append(out, iv)
		}
	}
	return out
}

// NextExpiry returns the earliest upcoming expires_at among live holds,
// used to arm the reconciliation timer.  ok is false when nothing is
// pending.
func NextExpiry(holds []model.TempHold, now time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	for _, h := range holds {
		if !h.Active(now) {
			continue
		}
		if !found || h.ExpiresAt.Before(next) {
			next = h.ExpiresAt
			found = true
		}
	}
	return next, found
}
