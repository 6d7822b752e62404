package model

import "time"

// DayWindow is the operating window for a single weekday: minutes from
// local midnight for open and close, plus the hourly rate charged during
// that window.  Open must be strictly less than close; rows violating
// that invariant are rejected when the schedule is loaded.
type DayWindow struct {
	OpenMin   int    // listing_schedules.open_min
	CloseMin  int    // listing_schedules.close_min
	RateCents uint32 // listing_schedules.rate_cents (per hour)
}

// WeeklySchedule maps membership tier -> weekday -> operating window.
// A missing weekday means the listing is closed that day for the tier;
// a missing tier means the tier has no access at all.
type WeeklySchedule map[string]map[time.Weekday]DayWindow
