package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// EventRepo provides access to the events table of confirmed bookings.
// The availability core only ever reads events; the single write path
// is CreateTx, invoked by the confirmation flow when a hold becomes a
// booking.  All timestamps are stored and compared in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// ListForRange returns the confirmed events on a listing and location
// that overlap the [from, to) range.  The half-open comparison mirrors
// the engine's overlap test so an event ending exactly at `from` is not
// returned.
func (r *EventRepo) ListForRange(ctx context.Context, listingID, locationID uint64, from, to time.Time) ([]model.Event, error) {
	const q = `SELECT id, listing_id, location_id, start_at, end_at
	           FROM events
	           WHERE listing_id = ? AND location_id = ? AND start_at < ? AND end_at > ?
	           ORDER BY start_at`
	rows, err := r.db.QueryContext(ctx, q, listingID, locationID, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.ListingID, &e.LocationID, &e.StartsAt, &e.EndsAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CreateTx inserts a confirmed event within the provided transaction.
// The caller is responsible for committing or rolling back.  On success
// the event's ID is populated with the auto-generated value.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	const q = `INSERT INTO events (listing_id, location_id, start_at, end_at) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.ListingID, e.LocationID, e.StartsAt.UTC(), e.EndsAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// DeleteForBookingTx removes the event occupying the exact range of a
// cancelled booking so the slots open up again.  Deleting an event that
// was already removed is a no-op.
func (r *EventRepo) DeleteForBookingTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `DELETE FROM events WHERE listing_id = ? AND location_id = ? AND start_at = ? AND end_at = ?`
	_, err := tx.ExecContext(ctx, q, b.ListingID, b.LocationID, b.StartsAt.UTC(), b.EndsAt.UTC())
	return err
}

// Ranges converts events to [start, end] pairs for the availability
// engine's interval reduction.
func Ranges(events []model.Event) [][2]time.Time {
	out := make([][2]time.Time, len(events))
	for i, e := range events {
		out[i] = [2]time.Time{e.StartsAt, e.EndsAt}
	}
	return out
}
