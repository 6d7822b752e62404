package booking

import (
	"testing"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

func testSchedule() model.WeeklySchedule {
	return model.WeeklySchedule{
		"standard": {
			time.Monday:  {OpenMin: 540, CloseMin: 1020, RateCents: 9500},
			time.Tuesday: {OpenMin: 600, CloseMin: 960, RateCents: 9500},
		},
		"member": {
			time.Monday: {OpenMin: 480, CloseMin: 1140, RateCents: 8000},
		},
	}
}

func TestResolveDay(t *testing.T) {
	ws := testSchedule()
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	wednesday := monday.AddDate(0, 0, 2)

	w := ResolveDay(ws, "standard", monday)
	if w == nil {
		t.Fatal("standard monday must resolve")
	}
	if w.OpenMin != 540 || w.CloseMin != 1020 {
		t.Errorf("window = %d..%d, want 540..1020", w.OpenMin, w.CloseMin)
	}
	// tiers see different windows for the same weekday
	if m := ResolveDay(ws, "member", monday); m == nil || m.OpenMin != 480 {
		t.Errorf("member monday = %+v, want open 480", m)
	}
	if ResolveDay(ws, "standard", wednesday) != nil {
		t.Error("wednesday has no window and must resolve nil")
	}
	if ResolveDay(ws, "vip", monday) != nil {
		t.Error("unknown tier must resolve nil")
	}
}

func TestNewContextClosedDay(t *testing.T) {
	l := &model.Listing{Timezone: "UTC", Rules: model.BookingRules{IntervalMin: 30}}
	wednesday := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	if _, open := NewContext(l, testSchedule(), "standard", wednesday, time.Now()); open {
		t.Error("closed day must not produce a context")
	}
}

func TestNewContextKeepsCalendarDayWestOfUTC(t *testing.T) {
	l := &model.Listing{Timezone: "America/New_York", Rules: model.BookingRules{IntervalMin: 30}}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// A requested date arrives parsed as UTC midnight.  UTC midnight of
	// Oct 13 is still Oct 12 evening in New York, but the client asked
	// for Tuesday the 13th and must get Tuesday's window.
	at := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	c, open := NewContext(l, testSchedule(), "standard", at, now)
	if !open {
		t.Fatal("tuesday must be open")
	}
	want := time.Date(2026, 10, 13, 0, 0, 0, 0, loc)
	if !c.Date.Equal(want) {
		t.Errorf("context date = %v, want %v", c.Date, want)
	}
	if c.OpenMin != 600 || c.CloseMin != 960 {
		t.Errorf("window = %d..%d, want tuesday's 600..960", c.OpenMin, c.CloseMin)
	}
}

func TestDateIn(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	parsed := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	got := DateIn(parsed, ny)
	want := time.Date(2026, 10, 14, 0, 0, 0, 0, ny)
	if !got.Equal(want) {
		t.Errorf("DateIn = %v, want %v", got, want)
	}
	// already in the target zone: identity
	if again := DateIn(want, ny); !again.Equal(want) {
		t.Errorf("DateIn twice = %v, want %v", again, want)
	}
	// Midnight on the same parsed value shifts the day; the two helpers
	// must disagree exactly there
	if m := Midnight(parsed, ny); m.Day() != 13 {
		t.Errorf("Midnight day = %d, want 13", m.Day())
	}
}

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{1, 60},
		{1.5, 90},
		{2.25, 135},
		{0.51, 31},
	}
	for _, tt := range tests {
		if got := NormalizeDuration(tt.hours); got != tt.want {
			t.Errorf("NormalizeDuration(%v) = %d, want %d", tt.hours, got, tt.want)
		}
	}
}

func TestEarliestStartMin(t *testing.T) {
	c := dayCtx(540, 1020, model.BookingRules{IntervalMin: 30})

	// future date: open time wins
	if got := c.earliestStartMin(); got != 540 {
		t.Errorf("future date start = %d, want 540", got)
	}

	// today before open: still the open time
	c.Now = time.Date(2026, 10, 14, 7, 45, 0, 0, c.Loc)
	if got := c.earliestStartMin(); got != 540 {
		t.Errorf("today before open = %d, want 540", got)
	}

	// today mid-morning: rounds up to the next boundary
	c.Now = time.Date(2026, 10, 14, 10, 5, 0, 0, c.Loc)
	if got := c.earliestStartMin(); got != 630 {
		t.Errorf("today 10:05 = %d, want 630", got)
	}

	// exactly on a boundary stays on it
	c.Now = time.Date(2026, 10, 14, 10, 30, 0, 0, c.Loc)
	if got := c.earliestStartMin(); got != 630 {
		t.Errorf("today 10:30 = %d, want 630", got)
	}
}

func TestEarliestStartMinOffGridOpen(t *testing.T) {
	// open 9:05 with a 30-minute step puts candidates at 545, 575, 605,
	// ...; pruning must round onto that grid, not onto multiples of 30
	// from midnight.
	c := dayCtx(545, 1020, model.BookingRules{IntervalMin: 30})

	c.Now = time.Date(2026, 10, 14, 9, 50, 0, 0, c.Loc) // 590
	if got := c.earliestStartMin(); got != 605 {
		t.Errorf("today 9:50 = %d, want 605", got)
	}

	c.Now = time.Date(2026, 10, 14, 10, 5, 0, 0, c.Loc) // 605, on grid
	if got := c.earliestStartMin(); got != 605 {
		t.Errorf("today 10:05 = %d, want 605", got)
	}
}
