package model

import "time"

// Event is a confirmed booking occupying a time range on a listing.
// Events are immutable once created and are the ground truth the
// availability engine checks candidate slots against.
//
// Fields:
//  ID         – primary key identifier.
//  ListingID  – listing the event occupies.
//  LocationID – location of the listing at booking time.
//  StartsAt   – when the booking begins (UTC in storage).
//  EndsAt     – when the booking ends (must be after StartsAt).
type Event struct {
	ID         uint64    // events.id
	ListingID  uint64    // events.listing_id
	LocationID uint64    // events.location_id
	StartsAt   time.Time // events.start_at
	EndsAt     time.Time // events.end_at
}
