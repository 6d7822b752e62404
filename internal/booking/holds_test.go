package booking

import (
	"testing"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

func u64(v uint64) *uint64 { return &v }

func TestActiveHolds(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	holds := []model.TempHold{
		{ID: 1, ExpiresAt: now.Add(5 * time.Minute)},
		{ID: 2, ExpiresAt: now.Add(-time.Second)}, // unswept but expired
		{ID: 3, ExpiresAt: now},                   // boundary: expired
	}
	got := ActiveHolds(holds, now)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("ActiveHolds = %+v, want only hold 1", got)
	}
}

func TestNewestActiveHold(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	member := model.Owner{UserID: u64(7)}
	guest := model.Owner{GuestID: "abc123"}
	holds := []model.TempHold{
		{ID: 1, UserID: u64(7), ExpiresAt: now.Add(2 * time.Minute)},
		{ID: 2, UserID: u64(7), ExpiresAt: now.Add(8 * time.Minute)}, // re-hold raced a release
		{ID: 3, GuestID: "abc123", ExpiresAt: now.Add(5 * time.Minute)},
		{ID: 4, UserID: u64(9), ExpiresAt: now.Add(9 * time.Minute)},
		{ID: 5, UserID: u64(7), ExpiresAt: now.Add(-time.Minute)},
	}

	if h := NewestActiveHold(holds, member, now); h == nil || h.ID != 2 {
		t.Errorf("member resume = %+v, want hold 2", h)
	}
	if h := NewestActiveHold(holds, guest, now); h == nil || h.ID != 3 {
		t.Errorf("guest resume = %+v, want hold 3", h)
	}
	if h := NewestActiveHold(holds, model.Owner{GuestID: "nobody"}, now); h != nil {
		t.Errorf("unknown guest resume = %+v, want nil", h)
	}
	// a member identity never matches guest rows and vice versa
	if h := NewestActiveHold(holds, model.Owner{UserID: u64(99)}, now); h != nil {
		t.Errorf("stranger resume = %+v, want nil", h)
	}
}

func TestHoldIntervalsFiltersExpired(t *testing.T) {
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	now := day.Add(12 * time.Hour)
	holds := []model.TempHold{
		{StartsAt: day.Add(700 * time.Minute), EndsAt: day.Add(760 * time.Minute), ExpiresAt: now.Add(time.Minute)},
		{StartsAt: day.Add(800 * time.Minute), EndsAt: day.Add(860 * time.Minute), ExpiresAt: now.Add(-time.Minute)},
		{StartsAt: day.AddDate(0, 0, 1), EndsAt: day.AddDate(0, 0, 1).Add(time.Hour), ExpiresAt: now.Add(time.Minute)},
	}
	got := HoldIntervals(holds, day, now)
	if len(got) != 1 {
		t.Fatalf("HoldIntervals = %+v, want one interval", got)
	}
	if got[0] != (Interval{StartMin: 700, EndMin: 760}) {
		t.Errorf("interval = %+v, want 700..760", got[0])
	}
}

func TestNextExpiry(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	holds := []model.TempHold{
		{ExpiresAt: now.Add(9 * time.Minute)},
		{ExpiresAt: now.Add(3 * time.Minute)},
		{ExpiresAt: now.Add(-time.Minute)},
	}
	got, ok := NextExpiry(holds, now)
	if !ok || !got.Equal(now.Add(3*time.Minute)) {
		t.Errorf("NextExpiry = %v ok=%v, want now+3m", got, ok)
	}
	if _, ok := NextExpiry(nil, now); ok {
		t.Error("no holds must report nothing pending")
	}
}
