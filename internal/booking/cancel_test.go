package booking

import (
	"testing"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

func TestRefundSplit(t *testing.T) {
	start := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	confirmed := &model.Booking{Status: model.BookingConfirmed, StartsAt: start, TotalCents: 19000}

	tests := []struct {
		name       string
		now        time.Time
		wantRefund uint32
		wantCredit uint32
	}{
		{"well ahead", start.Add(-48 * time.Hour), 19000, 0},
		{"exactly 24h ahead", start.Add(-24 * time.Hour), 19000, 0},
		{"inside the notice window", start.Add(-2 * time.Hour), 0, 19000},
		{"one minute before start", start.Add(-time.Minute), 0, 19000},
		{"at start", start, 0, 0},
		{"after start", start.Add(time.Hour), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refund, credit := RefundSplit(confirmed, tt.now)
			if refund != tt.wantRefund || credit != tt.wantCredit {
				t.Errorf("RefundSplit = %d/%d, want %d/%d", refund, credit, tt.wantRefund, tt.wantCredit)
			}
		})
	}

	cancelled := &model.Booking{Status: model.BookingCancelled, StartsAt: start, TotalCents: 19000}
	if refund, credit := RefundSplit(cancelled, start.Add(-48*time.Hour)); refund != 0 || credit != 0 {
		t.Errorf("cancelled booking = %d/%d, want 0/0", refund, credit)
	}
}
