package booking

import (
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// Selection is the visitor's in-progress choice: a date, a start, a
// duration and the derived price.  It is never persisted before a hold
// is taken; every user interaction produces a new value through one of
// the With* transitions below, and rendering is a pure projection of
// the result.
type Selection struct {
	Date          time.Time `json:"date"`
	StartMin      int       `json:"start"`
	EndMin        int       `json:"end"`
	DurationMin   int       `json:"duration"`
	Guests        int       `json:"guests"`
	RateCents     uint32    `json:"rate_cents"`
	DiscountCents uint32    `json:"discount_cents"`
	TotalCents    uint32    `json:"total_cents"`
}

// NewSelection seeds a selection for a freshly resolved date using the
// default duration, clamped to the rules.
func NewSelection(c *Context) Selection {
	s := Selection{Date: c.Date, Guests: 1}
	return s.WithDuration(c, c.Rules.DefaultMin)
}

// WithDate moves the selection to another resolved date.  The duration
// carries over; the start resets because the new day's slots have not
// been picked yet.
func (s Selection) WithDate(c *Context) Selection {
	s.Date = c.Date
	s.StartMin = 0
	s.EndMin = 0
	return s.WithDuration(c, s.DurationMin)
}

// WithDuration applies a duration change from the slider or the extended
// options list.  The value is clamped to [minimum, maximum] and snapped
// down to the interval grid, unless it matches an extended option
// exactly.  The end recomputes from the current start.
func (s Selection) WithDuration(c *Context, minutes int) Selection {
	minutes = clampDuration(c.Rules, minutes)
	s.DurationMin = minutes
	if s.StartMin > 0 {
		s.EndMin = s.StartMin + minutes
	}
	return s
}

// WithStart applies a start-time pick from the slot list.
func (s Selection) WithStart(c *Context, startMin int) Selection {
	s.StartMin = startMin
	s.EndMin = startMin + s.DurationMin
	return s
}

// WithGuests applies a guest-count change bounded by capacity settings.
func (s Selection) WithGuests(cap model.CapacitySettings, guests int) Selection {
	if cap.Min > 0 && guests < cap.Min {
		guests = cap.Min
	}
	if cap.Max > 0 && guests > cap.Max && !cap.AllowMore {
		guests = cap.Max
	}
	s.Guests = guests
	return s
}

// Priced derives the pricing summary from the context's scheduled rate
// and an optional special-rate override.  A special rate with RateCents
// set replaces the hourly rate; DiscountPct is then taken off the
// subtotal.  Totals round to whole cents via integer math on minutes.
func (s Selection) Priced(c *Context, sr *model.SpecialRate) Selection {
	rate := c.RateCents
	var pct uint8
	if sr != nil {
		if sr.RateCents > 0 {
			rate = sr.RateCents
		}
		pct = sr.DiscountPct
	}
	subtotal := uint64(rate) * uint64(s.DurationMin) / 60
	discount := subtotal * uint64(pct) / 100
	s.RateCents = rate
	s.DiscountCents = uint32(discount)
	s.TotalCents = uint32(subtotal - discount)
	return s
}

func clampDuration(r model.BookingRules, minutes int) int {
	for _, opt := range r.ExtendedOptions {
		if minutes == opt {
			return minutes
		}
	}
	if r.MinimumMin > 0 && minutes < r.MinimumMin {
		minutes = r.MinimumMin
	}
	if r.MaximumMin > 0 && minutes > r.MaximumMin {
		minutes = r.MaximumMin
	}
	if step := r.IntervalMin; step > 0 && minutes%step != 0 {
		minutes -= minutes % step
		if minutes < r.MinimumMin {
			minutes = r.MinimumMin
		}
	}
	return minutes
}
