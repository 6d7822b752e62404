package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// ErrListingNotFound is returned when a listing cannot be found in the DB.
var ErrListingNotFound = errors.New("listing not found")

// ListingRepo encapsulates all database queries related to listings and
// their weekly schedules.  A listing row carries the booking rules and
// capacity settings inline; the per-tier weekly schedule lives in the
// listing_schedules table and is loaded separately because the two have
// very different change cadences.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo constructs a ListingRepo with the provided DB handle.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *ListingRepo) DB() *sql.DB { return r.db }

// GetByID fetches a listing with its booking rules and capacity
// settings.  ExtendedOptions is stored as a JSON array column; a NULL
// or malformed value degrades to no extended options rather than an
// error.  Returns ErrListingNotFound when no row matches.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*model.Listing, error) {
	const q = `SELECT id, location_id, name, timezone,
	                  min_duration_min, max_duration_min, interval_min, default_duration_min,
	                  extended_options, window_days, buffer_before_min, buffer_after_min,
	                  capacity_min, capacity_max, capacity_interval, capacity_allow_more, capacity_max_message,
	                  created_at, updated_at
	           FROM listings WHERE id = ?`
	var (
		l        model.Listing
		extended sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.LocationID, &l.Name, &l.Timezone,
		&l.Rules.MinimumMin, &l.Rules.MaximumMin, &l.Rules.IntervalMin, &l.Rules.DefaultMin,
		&extended, &l.Rules.WindowDays, &l.Rules.BufferBeforeMin, &l.Rules.BufferAfterMin,
		&l.Capacity.Min, &l.Capacity.Max, &l.Capacity.Interval, &l.Capacity.AllowMore, &l.Capacity.MaxMessage,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if extended.Valid && extended.String != "" {
		// Malformed JSON is ignored so a bad row cannot take the listing offline.
		_ = json.Unmarshal([]byte(extended.String), &l.Rules.ExtendedOptions)
	}
	return &l, nil
}

// WeeklySchedule loads the per-tier operating windows for a listing.
// Each row maps (membership_tier, weekday) to an open/close window in
// minutes from local midnight plus the hourly rate.  Rows violating the
// open < close invariant abort the load: a silently skipped window
// would surface as a mysteriously closed day.
func (r *ListingRepo) WeeklySchedule(ctx context.Context, listingID uint64) (model.WeeklySchedule, error) {
	const q = `SELECT membership_tier, weekday, open_min, close_min, rate_cents
	           FROM listing_schedules WHERE listing_id = ?`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ws := model.WeeklySchedule{}
	for rows.Next() {
		var (
			tier    string
			weekday int
			w       model.DayWindow
		)
		if err := rows.Scan(&tier, &weekday, &w.OpenMin, &w.CloseMin, &w.RateCents); err != nil {
			return nil, err
		}
		if w.OpenMin >= w.CloseMin {
			return nil, fmt.Errorf("listing %d schedule: tier %q weekday %d has open %d >= close %d",
				listingID, tier, weekday, w.OpenMin, w.CloseMin)
		}
		if weekday < 0 || weekday > 6 {
			return nil, fmt.Errorf("listing %d schedule: invalid weekday %d", listingID, weekday)
		}
		if ws[tier] == nil {
			ws[tier] = map[time.Weekday]model.DayWindow{}
		}
		ws[tier][time.Weekday(weekday)] = w
	}
	return ws, rows.Err()
}
