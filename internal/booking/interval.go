package booking

import "time"

// Interval is a half-open [StartMin, EndMin) range in minutes from local
// midnight.  Both events and holds are reduced to intervals before the
// engine sees them, so the overlap test is identical for either.
type Interval struct {
	StartMin int
	EndMin   int
}

// Overlaps reports whether two half-open intervals intersect.  Touching
// endpoints do not overlap: a booking ending at 10:00 leaves 10:00 free.
// The test is symmetric by construction.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.StartMin < o.EndMin && iv.EndMin > o.StartMin
}

// minutesInDay is the number of minutes covered by one calendar day.
const minutesInDay = 24 * 60

// ClampToDay converts an absolute time range into a minute interval on
// the day starting at dayStart, clamped to [0, 1440).  The bool result
// is false when the range does not touch the day at all.
func ClampToDay(start, end, dayStart time.Time) (Interval, bool) {
	s := int(start.Sub(dayStart) / time.Minute)
	e := int(end.Sub(dayStart) / time.Minute)
	if e <= 0 || s >= minutesInDay {
		return Interval{}, false
	}
	if s < 0 {
		s = 0
	}
	if e > minutesInDay {
		e = minutesInDay
	}
	return Interval{StartMin: s, EndMin: e}, true
}

// EventIntervals reduces absolute-time ranges to day-relative intervals.
// Ranges outside the day are dropped.
func EventIntervals(ranges [][2]time.Time, dayStart time.Time) []Interval {
	out := make([]Interval, 0, len(ranges))
	for _, r := range ranges {
		if iv, ok := ClampToDay(r[0], r[1], dayStart); ok {
			out = append(out, iv)
		}
	}
	return out
}
