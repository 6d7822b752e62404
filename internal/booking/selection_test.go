package booking

import (
	"testing"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

func selCtx() *Context {
	c := dayCtx(540, 1020, model.BookingRules{
		MinimumMin:      60,
		MaximumMin:      240,
		IntervalMin:     30,
		DefaultMin:      120,
		ExtendedOptions: []int{300, 360},
	})
	c.RateCents = 9500
	return c
}

func TestNewSelectionDefaults(t *testing.T) {
	c := selCtx()
	s := NewSelection(c)
	if s.DurationMin != 120 {
		t.Errorf("default duration = %d, want 120", s.DurationMin)
	}
	if s.Guests != 1 {
		t.Errorf("default guests = %d, want 1", s.Guests)
	}
}

func TestWithDuration(t *testing.T) {
	c := selCtx()
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below minimum clamps up", 30, 60},
		{"above maximum clamps down", 480, 240},
		{"off-grid snaps down", 100, 90},
		{"on-grid passes through", 150, 150},
		{"extended option bypasses maximum", 300, 300},
		{"unlisted extended value clamps", 330, 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelection(c).WithDuration(c, tt.in)
			if s.DurationMin != tt.want {
				t.Errorf("duration = %d, want %d", s.DurationMin, tt.want)
			}
		})
	}
}

func TestWithStartRecomputesEnd(t *testing.T) {
	c := selCtx()
	s := NewSelection(c).WithStart(c, 600)
	if s.EndMin != 720 {
		t.Errorf("end = %d, want 720", s.EndMin)
	}
	s = s.WithDuration(c, 180)
	if s.EndMin != 780 {
		t.Errorf("end after duration change = %d, want 780", s.EndMin)
	}
}

func TestWithDateResetsStart(t *testing.T) {
	c := selCtx()
	s := NewSelection(c).WithStart(c, 600).WithDuration(c, 180)
	s = s.WithDate(c)
	if s.StartMin != 0 || s.EndMin != 0 {
		t.Errorf("start/end = %d/%d, want reset", s.StartMin, s.EndMin)
	}
	if s.DurationMin != 180 {
		t.Errorf("duration = %d, want carried over 180", s.DurationMin)
	}
}

func TestWithGuests(t *testing.T) {
	cap := model.CapacitySettings{Min: 1, Max: 8}
	c := selCtx()
	if got := NewSelection(c).WithGuests(cap, 0).Guests; got != 1 {
		t.Errorf("guests below min = %d, want 1", got)
	}
	if got := NewSelection(c).WithGuests(cap, 12).Guests; got != 8 {
		t.Errorf("guests above max = %d, want 8", got)
	}
	open := model.CapacitySettings{Min: 1, Max: 8, AllowMore: true}
	if got := NewSelection(c).WithGuests(open, 12).Guests; got != 12 {
		t.Errorf("allow-more guests = %d, want 12", got)
	}
}

func TestPriced(t *testing.T) {
	c := selCtx()
	base := NewSelection(c).WithDuration(c, 90).WithStart(c, 600)

	s := base.Priced(c, nil)
	if s.TotalCents != 14250 {
		t.Errorf("total = %d, want 14250", s.TotalCents) // 9500 * 1.5h
	}
	if s.DiscountCents != 0 {
		t.Errorf("discount = %d, want 0", s.DiscountCents)
	}

	s = base.Priced(c, &model.SpecialRate{DiscountPct: 20})
	if s.DiscountCents != 2850 || s.TotalCents != 11400 {
		t.Errorf("20%% off = %d/%d, want 2850/11400", s.DiscountCents, s.TotalCents)
	}

	s = base.Priced(c, &model.SpecialRate{RateCents: 8000})
	if s.RateCents != 8000 || s.TotalCents != 12000 {
		t.Errorf("override rate = %d/%d, want 8000/12000", s.RateCents, s.TotalCents)
	}

	s = base.Priced(c, &model.SpecialRate{RateCents: 8000, DiscountPct: 10})
	if s.TotalCents != 10800 {
		t.Errorf("override+discount total = %d, want 10800", s.TotalCents)
	}
}
