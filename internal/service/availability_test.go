package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastrillon77/photoloft-booking/internal/booking"
	"github.com/rcastrillon77/photoloft-booking/internal/repository"
)

var (
	listingCols = []string{"id", "location_id", "name", "timezone",
		"min_duration_min", "max_duration_min", "interval_min", "default_duration_min",
		"extended_options", "window_days", "buffer_before_min", "buffer_after_min",
		"capacity_min", "capacity_max", "capacity_interval", "capacity_allow_more", "capacity_max_message",
		"created_at", "updated_at"}
	scheduleCols = []string{"membership_tier", "weekday", "open_min", "close_min", "rate_cents"}
	eventCols    = []string{"id", "listing_id", "location_id", "start_at", "end_at"}
	tempCols     = []string{"id", "listing_id", "location_id", "user_id", "guest_id",
		"start_at", "end_at", "hold_token", "expires_at", "created_at"}
)

func newAvailMock(t *testing.T, now time.Time) (*AvailabilityService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	s := NewAvailabilityService(
		repository.NewListingRepo(db),
		repository.NewEventRepo(db),
		repository.NewHoldRepo(db),
		repository.NewSpecialRateRepo(db),
	)
	s.now = func() time.Time { return now }
	return s, mock
}

func expectListing(mock sqlmock.Sqlmock, now time.Time) {
	mock.ExpectQuery("FROM listings WHERE id").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(listingCols).
			AddRow(4, 1, "Loft A", "UTC", 60, 480, 30, 120, nil, 60, 0, 0, 1, 8, 1, false, "", now, now))
}

func expectSchedule(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("FROM listing_schedules").
		WithArgs(uint64(4)).
		WillReturnRows(rows)
}

func TestAvailabilityDay(t *testing.T) {
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) // a Wednesday
	now := day.Add(6 * time.Hour)
	s, mock := newAvailMock(t, now)

	expectListing(mock, now)
	expectSchedule(mock, sqlmock.NewRows(scheduleCols).
		AddRow("standard", int(time.Wednesday), 540, 1020, 9500))
	mock.ExpectQuery("FROM events").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(1, 4, 1, day.Add(600*time.Minute), day.Add(660*time.Minute)))
	mock.ExpectQuery("FROM temp_events").
		WillReturnRows(sqlmock.NewRows(tempCols).
			AddRow(9, 4, 1, nil, "g-x", day.Add(700*time.Minute), day.Add(760*time.Minute), "tok", now.Add(5*time.Minute), now))
	mock.ExpectQuery("FROM special_rates").
		WillReturnError(sql.ErrNoRows)

	snap, err := s.Day(context.Background(), 4, "standard", day, 60)
	require.NoError(t, err)
	require.False(t, snap.Closed)
	assert.Equal(t, 540, snap.OpenMin)
	assert.Equal(t, 1020, snap.CloseMin)
	assert.EqualValues(t, 9500, snap.Pricing.RateCents)

	byStart := map[int]booking.SlotStatus{}
	for _, sl := range snap.Slots {
		byStart[sl.StartMin] = sl.Status
	}
	assert.Equal(t, booking.SlotFree, byStart[540])
	assert.NotContains(t, byStart, 600, "event-blocked start must be dropped")
	assert.NotContains(t, byStart, 630)
	assert.Equal(t, booking.SlotOnHold, byStart[720], "held start stays listed")
	assert.Equal(t, booking.SlotFree, byStart[780])

	// a second read inside the freshness window serves the recorded
	// snapshot without touching the store (no further expectations)
	again, err := s.Day(context.Background(), 4, "standard", day, 60)
	require.NoError(t, err)
	assert.Same(t, snap, again)
}

func TestAvailabilityDayWesternZone(t *testing.T) {
	// A date arrives parsed as UTC midnight, which in New York is still
	// the previous evening.  The listing's Wednesday window must still
	// resolve for a requested Wednesday.
	day, err := time.Parse("2006-01-02", "2026-10-14") // a Wednesday
	require.NoError(t, err)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s, mock := newAvailMock(t, now)

	mock.ExpectQuery("FROM listings WHERE id").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(listingCols).
			AddRow(4, 1, "Loft A", "America/New_York", 60, 480, 30, 120, nil, 60, 0, 0, 1, 8, 1, false, "", now, now))
	expectSchedule(mock, sqlmock.NewRows(scheduleCols).
		AddRow("standard", int(time.Wednesday), 540, 1020, 9500))
	mock.ExpectQuery("FROM events").
		WillReturnRows(sqlmock.NewRows(eventCols))
	mock.ExpectQuery("FROM temp_events").
		WillReturnRows(sqlmock.NewRows(tempCols))
	mock.ExpectQuery("FROM special_rates").
		WillReturnError(sql.ErrNoRows)

	snap, err := s.Day(context.Background(), 4, "standard", day, 60)
	require.NoError(t, err)
	require.False(t, snap.Closed, "Wednesday window must resolve for the requested Wednesday")
	assert.Equal(t, 540, snap.OpenMin)
	assert.Equal(t, 480, snap.MaxDuration)
}

func TestStaleComputeDroppedAfterInvalidate(t *testing.T) {
	s, _ := newAvailMock(t, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	k := SnapshotKey{ListingID: 4, Tier: "standard", Date: "2026-10-14", DurationMin: 60}

	// a slow request-path computation starts, then a hold lands
	stale := s.beginCompute(k)
	s.Invalidate(4)

	// the mutation-driven refresh records the post-hold view
	fresh := &Snapshot{MaxDuration: 120}
	require.True(t, s.record(k, fresh, s.beginCompute(k)))

	// the pre-hold computation finishes late and must be dropped
	assert.False(t, s.record(k, &Snapshot{MaxDuration: 480}, stale))
	assert.Same(t, fresh, s.Cached(k))

	// a mutation on another listing does not disturb this key
	gen := s.beginCompute(k)
	s.Invalidate(99)
	assert.True(t, s.record(k, fresh, gen))
}

func TestAvailabilityDayClosed(t *testing.T) {
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) // Thursday, no window
	now := day.Add(-24 * time.Hour)
	s, mock := newAvailMock(t, now)

	expectListing(mock, now)
	expectSchedule(mock, sqlmock.NewRows(scheduleCols).
		AddRow("standard", int(time.Wednesday), 540, 1020, 9500))

	snap, err := s.Day(context.Background(), 4, "standard", day, 60)
	require.NoError(t, err)
	assert.True(t, snap.Closed)
	assert.Empty(t, snap.Slots)
	assert.Zero(t, snap.MaxDuration)
}
