package model

import "time"

// Listing represents a bookable studio space.  A listing belongs to a
// physical location and carries the booking rules and capacity settings
// that drive slot generation.  The weekly operating schedule lives in
// listing_schedules and is loaded separately.
//
// Fields:
//  ID         – primary key identifier.
//  LocationID – location (building/loft) the listing belongs to.
//  Name       – human-friendly name of the studio.
//  Timezone   – IANA timezone name; all slot arithmetic is performed in
//               minutes from local midnight in this zone.
//  Rules      – booking rules (durations, interval, buffers, window).
//  Capacity   – guest capacity settings.
type Listing struct {
	ID         uint64           // listings.id
	LocationID uint64           // listings.location_id
	Name       string           // listings.name
	Timezone   string           // listings.timezone
	Rules      BookingRules     // listings.* rule columns
	Capacity   CapacitySettings // listings.* capacity columns
	CreatedAt  time.Time        // listings.created_at
	UpdatedAt  time.Time        // listings.updated_at
}

// BookingRules controls which durations can be booked and how candidate
// start times are generated.  All durations are integer minutes; values
// arriving as fractional hours must be normalized before they reach the
// availability engine.
type BookingRules struct {
	MinimumMin      int   // shortest bookable duration
	MaximumMin      int   // longest bookable duration
	IntervalMin     int   // step between candidate start times (e.g. 30)
	DefaultMin      int   // duration preselected for a fresh selection
	ExtendedOptions []int // extra duration choices beyond the slider range
	WindowDays      int   // how many days ahead a booking may be placed
	BufferBeforeMin int   // padding required before a booking
	BufferAfterMin  int   // padding required after a booking
}

// CapacitySettings describes how many guests a listing admits.  AllowMore
// lets the UI offer a "more than max" option which surfaces MaxMessage
// instead of a bookable count.
type CapacitySettings struct {
	Min        int
	Max        int
	Interval   int
	AllowMore  bool
	MaxMessage string
}

// Location returns the listing's time.Location, falling back to UTC when
// the stored name cannot be resolved.
func (l *Listing) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
