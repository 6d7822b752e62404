package model

import "time"

// BookingStatus enumerates the lifecycle states of a confirmed booking.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking is a confirmed reservation as shown on the reservation
// management page.  It records the priced selection at confirmation time
// so later rate changes never alter historical totals.
//
// Fields:
//  ID            – primary key identifier.
//  ListingID     – listing that was booked.
//  LocationID    – location of the listing.
//  UserID        – member who booked (nil for guests).
//  GuestID       – guest id (empty for members).
//  StartsAt      – start of the booked range.
//  EndsAt        – end of the booked range.
//  Guests        – number of guests attending.
//  RateCents     – hourly rate applied.
//  DiscountCents – discount subtracted from the subtotal.
//  TotalCents    – amount charged.
//  RefundCents   – refunded amount after cancellation.
//  CreditCents   – studio credit granted after cancellation.
//  Status        – CONFIRMED or CANCELLED.
type Booking struct {
	ID            uint64    // bookings.id
	ListingID     uint64    // bookings.listing_id
	LocationID    uint64    // bookings.location_id
	UserID        *uint64   // bookings.user_id (nullable)
	GuestID       string    // bookings.guest_id (nullable)
	StartsAt      time.Time // bookings.start_at
	EndsAt        time.Time // bookings.end_at
	Guests        int       // bookings.guests
	RateCents     uint32    // bookings.rate_cents
	DiscountCents uint32    // bookings.discount_cents
	TotalCents    uint32    // bookings.total_cents
	RefundCents   uint32    // bookings.refund_cents
	CreditCents   uint32    // bookings.credit_cents
	Status        string    // bookings.status
	CreatedAt     time.Time // bookings.created_at
}
