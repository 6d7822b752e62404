package booking

import (
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// fullRefundNotice is how far ahead of the start a cancellation must
// arrive to get money back instead of studio credit.
const fullRefundNotice = 24 * time.Hour

// RefundSplit computes what a cancellation returns to the customer:
// cancelling with at least 24 hours' notice refunds the full total,
// cancelling later but before the start converts the total to studio
// credit, and cancelling after the start returns nothing.  Both amounts
// are zero for an already cancelled booking.
func RefundSplit(b *model.Booking, now time.Time) (refundCents, creditCents uint32) {
	if b.Status != model.BookingConfirmed {
		return 0, 0
	}
	switch {
	case !now.Before(b.StartsAt):
		return 0, 0
	case b.StartsAt.Sub(now) >= fullRefundNotice:
		return b.TotalCents, 0
	default:
		return 0, b.TotalCents
	}
}
