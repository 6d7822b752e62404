package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// dayCtx builds a context for a fixed future date so past-slot pruning
// never interferes unless a test sets Now onto the date itself.
func dayCtx(openMin, closeMin int, rules model.BookingRules) *Context {
	loc := time.UTC
	date := time.Date(2026, 10, 14, 0, 0, 0, 0, loc)
	return &Context{
		Date:     date,
		Loc:      loc,
		OpenMin:  openMin,
		CloseMin: closeMin,
		Rules:    rules,
		Now:      time.Date(2026, 10, 1, 12, 0, 0, 0, loc),
	}
}

func starts(slots []Slot) []int {
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.StartMin)
	}
	return out
}

func TestStartTimesEmptyDay(t *testing.T) {
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 30})
	slots := c.StartTimes(60, nil, nil)
	if len(slots) == 0 {
		t.Fatal("expected slots on an empty day")
	}
	if got := slots[0].StartMin; got != 540 {
		t.Errorf("first slot = %d, want 540", got)
	}
	if got := slots[len(slots)-1].StartMin; got != 960 {
		t.Errorf("last slot = %d, want 960", got)
	}
	for _, s := range slots {
		if s.Status != SlotFree {
			t.Errorf("slot %d status = %q, want free", s.StartMin, s.Status)
		}
	}
}

func TestStartTimesEventBlocking(t *testing.T) {
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 30})
	events := []Interval{{StartMin: 600, EndMin: 660}}
	got := starts(c.StartTimes(60, events, nil))

	has := func(v int) bool {
		for _, s := range got {
			if s == v {
				return true
			}
		}
		return false
	}
	if has(600) {
		t.Error("start 600 overlaps event and must be excluded")
	}
	if has(630) {
		t.Error("start 630 overlaps event and must be excluded")
	}
	// a booking ending exactly at the event start does not overlap
	if !has(540) {
		t.Error("start 540 ends at event start and must stay bookable")
	}
	if !has(660) {
		t.Error("start 660 begins at event end and must stay bookable")
	}
}

func TestStartTimesBufferBefore(t *testing.T) {
	// with a 15-minute lead buffer a 9:45 start ends (buffered) at 660
	// which is past the event start, so 585 is excluded even though the
	// billed hour would only touch the event
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 15, BufferBeforeMin: 15})
	events := []Interval{{StartMin: 600, EndMin: 660}}
	if c.IsSlotFree(585, 60, events) {
		t.Error("buffered 585+60 reaches into the event and must be busy")
	}
	// without buffers the same start only touches the event
	c2 := dayCtx(540, 1020, model.BookingRules{IntervalMin: 15})
	if c2.IsSlotFree(585, 60, events) {
		t.Error("unbuffered 585..645 overlaps event 600..660")
	}
	if !c2.IsSlotFree(540, 60, events) {
		t.Error("unbuffered 540..600 touches the event and must be free")
	}
}

func TestStartTimesBufferAfter(t *testing.T) {
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 30, BufferAfterMin: 30})
	events := []Interval{{StartMin: 660, EndMin: 720}}
	// 570..630 plus 30 after = 660, which only touches the event
	if !c.IsSlotFree(570, 60, events) {
		t.Error("buffered end touching the event start must stay free")
	}
	// 600..660 plus 30 after = 690, inside the event
	if c.IsSlotFree(600, 60, events) {
		t.Error("buffered end inside the event must be busy")
	}
}

func TestBufferedClampsToWindow(t *testing.T) {
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 30, BufferBeforeMin: 30, BufferAfterMin: 30})
	// an opening slot's lead buffer would reach before open; the clamp
	// keeps it bookable against an event ending exactly at open
	if !c.IsSlotFree(540, 60, []Interval{{StartMin: 480, EndMin: 540}}) {
		t.Error("lead buffer must clamp to the operating window open")
	}
	// a closing slot's tail buffer clamps to close
	if !c.IsSlotFree(960, 60, []Interval{{StartMin: 1020, EndMin: 1080}}) {
		t.Error("tail buffer must clamp to the operating window close")
	}
}

func TestStartTimesHoldMarksOnHold(t *testing.T) {
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 30})
	holds := []Interval{{StartMin: 700, EndMin: 760}}
	slots := c.StartTimes(60, nil, holds)

	byStart := map[int]SlotStatus{}
	for _, s := range slots {
		byStart[s.StartMin] = s.Status
	}
	// every start whose hour intersects [700,760) is held, not removed
	for _, s := range []int{660, 690, 720, 750} {
		st, ok := byStart[s]
		if !ok {
			t.Errorf("held start %d missing from slot list", s)
			continue
		}
		if st != SlotOnHold {
			t.Errorf("start %d status = %q, want on_hold", s, st)
		}
	}
	if byStart[630] != SlotFree {
		t.Errorf("start 630 status = %q, want free", byStart[630])
	}
	if byStart[780] != SlotFree {
		t.Errorf("start 780 status = %q, want free", byStart[780])
	}
}

func TestStartTimesPastPruning(t *testing.T) {
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 30})
	// make the context date "today", 10:05 local
	c.Now = time.Date(2026, 10, 14, 10, 5, 0, 0, c.Loc)
	got := starts(c.StartTimes(60, nil, nil))
	if len(got) == 0 {
		t.Fatal("expected slots")
	}
	// 10:05 rounds up to the 10:30 boundary
	if got[0] != 630 {
		t.Errorf("first slot = %d, want 630", got[0])
	}
}

func TestMaxDuration(t *testing.T) {
	rules := model.BookingRules{IntervalMin: 30}
	tests := []struct {
		name   string
		rules  model.BookingRules
		events []Interval
		holds  []Interval
		want   int
	}{
		{"empty day", rules, nil, nil, 480},
		{"split by event", rules, []Interval{{StartMin: 720, EndMin: 780}}, nil, 240},
		{"holds count as busy", rules, nil, []Interval{{StartMin: 540, EndMin: 840}}, 180},
		{"fully booked", rules, []Interval{{StartMin: 540, EndMin: 1020}}, nil, 0},
		{"capped by maximum", model.BookingRules{IntervalMin: 30, MaximumMin: 180}, nil, nil, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dayCtx(540, 1020, tt.rules)
			if got := c.MaxDuration(tt.events, tt.holds); got != tt.want {
				t.Errorf("MaxDuration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHasAny(t *testing.T) {
	rules := model.BookingRules{IntervalMin: 30, MinimumMin: 60}
	c := dayCtx(540, 660, rules)
	if !c.HasAny(nil, nil) {
		t.Error("open day must report availability")
	}
	if c.HasAny([]Interval{{StartMin: 540, EndMin: 660}}, nil) {
		t.Error("fully covered day must report nothing")
	}
	// a held day is also unavailable for booking right now
	if c.HasAny(nil, []Interval{{StartMin: 540, EndMin: 660}}) {
		t.Error("fully held day must report nothing")
	}
}

func TestNextAvailableDate(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	openDay := from.AddDate(0, 0, 9)

	got, ok, err := NextAvailableDate(from, 30, func(d time.Time) (bool, error) {
		return d.Equal(openDay), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !got.Equal(openDay) {
		t.Errorf("got %v ok=%v, want %v", got, ok, openDay)
	}

	_, ok, err = NextAvailableDate(from, 30, func(time.Time) (bool, error) { return false, nil })
	if err != nil || ok {
		t.Errorf("empty window: ok=%v err=%v, want false nil", ok, err)
	}

	probeErr := errors.New("boom")
	_, _, err = NextAvailableDate(from, 30, func(time.Time) (bool, error) { return false, probeErr })
	if !errors.Is(err, probeErr) {
		t.Errorf("probe error not propagated: %v", err)
	}
}

func TestOverlapsSymmetry(t *testing.T) {
	a := Interval{StartMin: 540, EndMin: 600}
	b := Interval{StartMin: 600, EndMin: 660}
	if a.Overlaps(b) || b.Overlaps(a) {
		t.Error("touching intervals must not overlap")
	}
	c := Interval{StartMin: 590, EndMin: 610}
	if !a.Overlaps(c) || !c.Overlaps(a) {
		t.Error("overlap test must be symmetric")
	}
}
