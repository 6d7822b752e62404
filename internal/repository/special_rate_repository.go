package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// SpecialRateRepo reads date-range rate overrides.  Overrides are
// append-only and rarely change, so no caching or write path lives
// here.
type SpecialRateRepo struct {
	db *sql.DB
}

// NewSpecialRateRepo returns a new SpecialRateRepo bound to the
// provided database.
func NewSpecialRateRepo(db *sql.DB) *SpecialRateRepo { return &SpecialRateRepo{db: db} }

// ForDate returns the override covering the given date on a listing, or
// nil when the scheduled rate applies.  When ranges overlap, the most
// recently created row wins.
func (r *SpecialRateRepo) ForDate(ctx context.Context, listingID uint64, date time.Time) (*model.SpecialRate, error) {
	const q = `SELECT id, listing_id, starts_on, ends_on, rate_cents, discount_pct, created_at
	           FROM special_rates
	           WHERE listing_id = ? AND starts_on <= ? AND ends_on >= ?
	           ORDER BY created_at DESC LIMIT 1`
	day := date.Format("2006-01-02")
	var sr model.SpecialRate
	err := r.db.QueryRowContext(ctx, q, listingID, day, day).Scan(
		&sr.ID, &sr.ListingID, &sr.StartsOn, &sr.EndsOn, &sr.RateCents, &sr.DiscountPct, &sr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sr, nil
}
