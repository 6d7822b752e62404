package model

import "time"

// SpecialRate is a date-range override of a listing's scheduled rate,
// optionally combined with a percentage discount.  When several rows
// cover the same date the most recently created one wins.
type SpecialRate struct {
	ID          uint64    // special_rates.id
	ListingID   uint64    // special_rates.listing_id
	StartsOn    time.Time // special_rates.starts_on (date)
	EndsOn      time.Time // special_rates.ends_on (date, inclusive)
	RateCents   uint32    // special_rates.rate_cents; 0 keeps the scheduled rate
	DiscountPct uint8     // special_rates.discount_pct (0-100)
	CreatedAt   time.Time // special_rates.created_at
}
