package booking

import "time"

// SlotStatus distinguishes a bookable start from one temporarily blocked
// by someone else's hold.  Held slots stay in the slot list so the UI
// can say "on hold" instead of pretending the day is empty.
type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotOnHold SlotStatus = "on_hold"
)

// Slot is a candidate booking start time for a single date.  Slots are
// ephemeral: they are recomputed on every schedule, duration or date
// change and never stored.
type Slot struct {
	StartMin int        `json:"start"`
	Status   SlotStatus `json:"status"`
}

// IsSlotFree reports whether a booking of durationMin starting at
// startMin fits between the given busy intervals.  The requested range
// is padded with the context's buffers, clamped to the operating window,
// and checked against every busy interval with the half-open overlap
// test.  Buffers block overlap but are not part of the billed range.
func (c *Context) IsSlotFree(startMin, durationMin int, busy []Interval) bool {
	want := c.buffered(startMin, durationMin)
	for _, b := range busy {
		if want.Overlaps(b) {
			return false
		}
	}
	return true
}

// buffered expands a requested range by the configured buffers and
// clamps it to the operating window.
func (c *Context) buffered(startMin, durationMin int) Interval {
	s := startMin - c.Rules.BufferBeforeMin
	e := startMin + durationMin + c.Rules.BufferAfterMin
	if s < c.OpenMin {
		s = c.OpenMin
	}
	if e > c.CloseMin {
		e = c.CloseMin
	}
	return Interval{StartMin: s, EndMin: e}
}

// StartTimes enumerates every candidate start for the context's date at
// the configured interval, from open to close minus duration.  Starts
// blocked by a confirmed event are dropped; starts free of events but
// covered by an active hold are kept with status on_hold so the caller
// can tell "held" apart from "nothing available".  The slice is ordered
// and rebuilt from scratch on every call.
func (c *Context) StartTimes(durationMin int, events, holds []Interval) []Slot {
	if durationMin <= 0 {
		return nil
	}
	var slots []Slot
	last := c.CloseMin - durationMin
	for start := c.earliestStartMin(); start <= last; start += c.step() {
		if !c.IsSlotFree(start, durationMin, events) {
			continue
		}
		status := SlotFree
		if !c.IsSlotFree(start, durationMin, holds) {
			status = SlotOnHold
		}
		slots = append(slots, Slot{StartMin: start, Status: status})
	}
	return slots
}

// FreeStartTimes returns only the bookable starts from StartTimes.
func (c *Context) FreeStartTimes(durationMin int, events, holds []Interval) []int {
	var out []int
	for _, s := range c.StartTimes(durationMin, events, holds) {
		if s.Status == SlotFree {
			out = append(out, s.StartMin)
		}
	}
	return out
}

// MaxDuration returns the longest bookable run on the context's date, in
// minutes.  For each candidate start it greedily extends the duration in
// interval-sized increments while the slot stays free of both events and
// holds.  The scan is stable left to right: the first start reaching the
// maximum wins.  A closed or fully booked day yields 0.
func (c *Context) MaxDuration(events, holds []Interval) int {
	busy := make([]Interval, 0, len(events)+len(holds))
	busy = append(busy, events...)
	busy = append(busy, holds...)

	step := c.step()
	best := 0
	for start := c.earliestStartMin(); start < c.CloseMin; start += step {
		run := 0
		for {
			next := run + step
			if start+next > c.CloseMin {
				break
			}
			if !c.IsSlotFree(start, next, busy) {
				break
			}
			run = next
		}
		if run > best {
			best = run
		}
	}
	if max := c.Rules.MaximumMin; max > 0 && best > max {
		best = max
	}
	return best
}

// HasAny reports whether at least one slot of the minimum bookable
// duration is free on the context's date.  It short-circuits on the
// first hit, which keeps calendar-wide date validation cheap.
func (c *Context) HasAny(events, holds []Interval) bool {
	dur := c.Rules.MinimumMin
	if dur <= 0 {
		dur = c.step()
	}
	last := c.CloseMin - dur
	busy := make([]Interval, 0, len(events)+len(holds))
	busy = append(busy, events...)
	busy = append(busy, holds...)
	for start := c.earliestStartMin(); start <= last; start += c.step() {
		if c.IsSlotFree(start, dur, busy) {
			return true
		}
	}
	return false
}

// NextAvailableDate scans forward day by day, inclusive of fromDate, up
// to maxDays days, and returns the first date for which probe reports
// availability.  The bool result is false when the whole lookahead
// window has nothing; callers surface that as an empty state, not an
// error.  probe errors abort the scan.
func NextAvailableDate(fromDate time.Time, maxDays int, probe func(date time.Time) (bool, error)) (time.Time, bool, error) {
	for i := 0; i < maxDays; i++ {
		d := fromDate.AddDate(0, 0, i)
		ok, err := probe(d)
		if err != nil {
			return time.Time{}, false, err
		}
		if ok {
			return d, true, nil
		}
	}
	return time.Time{}, false, nil
}
