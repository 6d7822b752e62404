// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingQueueName is the durable queue booking confirmations flow through.
const BookingQueueName = "booking.confirmed"

// BookingConfirmedEvent is published when a hold is successfully
// confirmed into a booking. It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type BookingConfirmedEvent struct {
	BookingID     uint64 `json:"booking_id"`
	ListingID     uint64 `json:"listing_id"`
	ListingName   string `json:"listing_name"`
	LocationID    uint64 `json:"location_id"`
	UserID        uint64 `json:"user_id,omitempty"`
	GuestID       string `json:"guest_id,omitempty"`
	Date          string `json:"date"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	DurationMin   int    `json:"duration_min"`
	Guests        int    `json:"guests"`
	RateCents     uint32 `json:"rate_cents"`
	DiscountCents uint32 `json:"discount_cents"`
	TotalCents    uint32 `json:"total_cents"`
	ConfirmedAt   string `json:"confirmed_at"`
}
