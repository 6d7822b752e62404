// Package booking implements the availability core: resolving a
// listing's operating window for a date, computing bookable start times
// against confirmed events and live holds, and pricing a selection.
// All times inside this package are integer minutes from local midnight
// in the listing's display timezone; nothing here touches the database.
package booking

import (
	"math"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// Context is the immutable per-date view the engine operates on.  It is
// rebuilt by ResolveDay for every date/tier change and passed explicitly
// into every engine call; engine functions never consult shared state.
type Context struct {
	Date      time.Time          // midnight of the target date in Loc
	Loc       *time.Location     // listing display timezone
	OpenMin   int                // operating window open, minutes from midnight
	CloseMin  int                // operating window close, exclusive
	RateCents uint32             // scheduled hourly rate for the date
	Rules     model.BookingRules // durations, interval, buffers
	Now       time.Time          // evaluation instant for past-slot pruning
}

// ResolveDay looks up the operating window for a membership tier on a
// given date.  It returns nil when the tier has no schedule or the
// weekday is absent, which callers must treat as a closed day rather
// than an error.
func ResolveDay(ws model.WeeklySchedule, tier string, date time.Time) *model.DayWindow {
	days, ok := ws[tier]
	if !ok {
		return nil
	}
	w, ok := days[date.Weekday()]
	if !ok {
		return nil
	}
	return &w
}

// NewContext resolves the operating window for the listing, tier and
// date and assembles an engine context.  The bool result is false on a
// closed day.  The date's calendar day is taken as is and re-anchored
// at midnight in the listing zone: a client asking for "2026-10-14"
// means October 14th on the listing's wall clock, no matter which zone
// the parsed time.Time happens to carry.
func NewContext(l *model.Listing, ws model.WeeklySchedule, tier string, date, now time.Time) (*Context, bool) {
	loc := l.Location()
	day := DateIn(date, loc)
	w := ResolveDay(ws, tier, day)
	if w == nil {
		return nil, false
	}
	return &Context{
		Date:      day,
		Loc:       loc,
		OpenMin:   w.OpenMin,
		CloseMin:  w.CloseMin,
		RateCents: w.RateCents,
		Rules:     l.Rules,
		Now:       now,
	}, true
}

// Midnight truncates t to the start of its calendar day in loc.  Use
// it for real instants (the current time, a stored hold start); the
// instant is converted into loc first, so an evening in one zone may
// land on a different calendar day in another.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DateIn re-anchors the calendar day t displays at midnight in loc.
// Unlike Midnight it never converts the instant: a date parsed as UTC
// midnight keeps its year, month and day even when loc is west of UTC,
// where the same instant would read as the previous evening.  Use it
// for values that carry a calendar date rather than a point in time.
func DateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NormalizeDuration converts an externally supplied fractional-hour
// duration (e.g. 1.5) to integer minutes.  The engine never works with
// sub-minute precision.
func NormalizeDuration(hours float64) int {
	return int(math.Round(hours * 60))
}

// earliestStartMin returns the first permissible candidate start for the
// context's date.  On future dates that is simply the open time; when
// the date is today, starts in the past are pruned by rounding the
// current time up to the next candidate on the grid anchored at the
// open time, so today's slots line up with every other day's.
func (c *Context) earliestStartMin() int {
	start := c.OpenMin
	now := c.Now.In(c.Loc)
	if Midnight(now, c.Loc).Equal(c.Date) {
		nowMin := now.Hour()*60 + now.Minute()
		if nowMin > start {
			step := c.step()
			start += ((nowMin - start + step - 1) / step) * step
		}
	}
	return start
}

// step returns the candidate-start interval, defaulting to 30 minutes
// when the listing carries no explicit value.
func (c *Context) step() int {
	if c.Rules.IntervalMin > 0 {
		return c.Rules.IntervalMin
	}
	return 30
}
