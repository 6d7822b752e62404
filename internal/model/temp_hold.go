package model

import "time"

// TempHold is a short-lived exclusive hold on a time range, created when
// a visitor continues past slot selection and released when they confirm,
// navigate away, or the countdown expires.  A hold whose ExpiresAt has
// passed is inert for availability immediately; the row itself is removed
// by an opportunistic sweep, not in real time.
//
// Fields:
//  ID         – primary key identifier.
//  ListingID  – listing the hold occupies.
//  LocationID – location of the listing.
//  UserID     – member who owns the hold (nil for guests).
//  GuestID    – guest id owning the hold (empty for members).
//  StartsAt   – start of the held range.
//  EndsAt     – end of the held range.
//  HoldToken  – opaque token returned to the client for correlation.
//  ExpiresAt  – authoritative expiry boundary; client timers are advisory.
//  CreatedAt  – when the hold was created.
type TempHold struct {
	ID         uint64    // temp_events.id
	ListingID  uint64    // temp_events.listing_id
	LocationID uint64    // temp_events.location_id
	UserID     *uint64   // temp_events.user_id (nullable)
	GuestID    string    // temp_events.guest_id (nullable)
	StartsAt   time.Time // temp_events.start_at
	EndsAt     time.Time // temp_events.end_at
	HoldToken  string    // temp_events.hold_token
	ExpiresAt  time.Time // temp_events.expires_at
	CreatedAt  time.Time // temp_events.created_at
}

// Active reports whether the hold still counts against availability at
// the given instant.  Expiry is time-based: an unswept row with a past
// ExpiresAt is already inactive.
func (h *TempHold) Active(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

// Owner returns the hold's owner identity.
func (h *TempHold) Owner() Owner {
	return Owner{UserID: h.UserID, GuestID: h.GuestID}
}
