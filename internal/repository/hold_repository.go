package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// HoldRepo provides data access to the temp_events table of short-lived
// holds.  All methods compare expirations against UTC_TIMESTAMP() so a
// row whose expires_at has passed never reaches callers, even before
// the sweep deletes it.  Release and sweep are idempotent: deleting
// rows that are already gone is a no-op, which lets interrupted
// multi-step sequences (release old hold, insert new one) leave at
// worst a stale row behind for the sweep to collect.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// DB exposes the underlying handle for transaction-spanning callers.
func (r *HoldRepo) DB() *sql.DB { return r.db }

// randomToken generates a random hexadecimal string of n bytes (2n hex
// characters) using crypto/rand.  It populates the hold_token column.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ownerClause builds the SQL predicate selecting rows by hold owner.
// Members match on user_id, guests on guest_id.
func ownerClause(o model.Owner) (string, interface{}) {
	if o.UserID != nil {
		return "user_id = ?", *o.UserID
	}
	return "guest_id = ?", o.GuestID
}

// Create inserts a hold with a fresh random token.  The expires_at
// value must already be set by the caller (now + hold TTL).  On success
// the hold's ID and HoldToken are populated.  This is a single atomic
// statement: there is no surrounding transaction to leave half-applied.
func (r *HoldRepo) Create(ctx context.Context, h *model.TempHold) error {
	token, err := randomToken(32)
	if err != nil {
		return err
	}
	const q = `INSERT INTO temp_events (listing_id, location_id, user_id, guest_id, start_at, end_at, hold_token, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		h.ListingID, h.LocationID, h.UserID, nullString(h.GuestID),
		h.StartsAt.UTC(), h.EndsAt.UTC(), token, h.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	h.HoldToken = token
	return nil
}

// DeleteByOwner releases every hold the owner has on a listing and
// returns how many rows were removed.  Releasing when nothing is held
// returns 0 with no error; callers rely on that idempotence when the
// countdown, a back navigation and an explicit release all race.
func (r *HoldRepo) DeleteByOwner(ctx context.Context, owner model.Owner, listingID uint64) (int64, error) {
	clause, arg := ownerClause(owner)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM temp_events WHERE listing_id = ? AND `+clause, listingID, arg)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SweepExpired deletes every hold whose expires_at has passed, across
// all listings, and returns the number of rows removed.  It is a
// maintenance operation triggered opportunistically after refreshes and
// by the reconciliation timer, not a real-time guarantee: availability
// reads filter by expiry regardless.
func (r *HoldRepo) SweepExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM temp_events WHERE expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveForRange returns the non-expired holds on a listing and
// location overlapping [from, to).  The expiry filter lives in SQL, but
// callers still re-filter by wall clock before feeding the engine.
func (r *HoldRepo) ActiveForRange(ctx context.Context, listingID, locationID uint64, from, to time.Time) ([]model.TempHold, error) {
	const q = `SELECT id, listing_id, location_id, user_id, guest_id, start_at, end_at, hold_token, expires_at, created_at
	           FROM temp_events
	           WHERE listing_id = ? AND location_id = ?
	             AND start_at < ? AND end_at > ?
	             AND expires_at > UTC_TIMESTAMP()
	           ORDER BY start_at`
	rows, err := r.db.QueryContext(ctx, q, listingID, locationID, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHolds(rows)
}

// NewestActiveByOwner returns the owner's live hold with the freshest
// expires_at, or nil when none exists.  Multiple rows can coexist
// transiently; only the newest is trusted, letting a returning visitor
// resume at the confirmation step.
func (r *HoldRepo) NewestActiveByOwner(ctx context.Context, owner model.Owner) (*model.TempHold, error) {
	clause, arg := ownerClause(owner)
	q := `SELECT id, listing_id, location_id, user_id, guest_id, start_at, end_at, hold_token, expires_at, created_at
	      FROM temp_events
	      WHERE ` + clause + ` AND expires_at > UTC_TIMESTAMP()
	      ORDER BY expires_at DESC LIMIT 1`
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	holds, err := scanHolds(rows)
	if err != nil || len(holds) == 0 {
		return nil, err
	}
	return &holds[0], nil
}

// NearestExpiry returns the earliest upcoming expires_at among all live
// holds so the reconciliation timer can be armed.  ok is false when no
// hold is pending.
func (r *HoldRepo) NearestExpiry(ctx context.Context) (time.Time, bool, error) {
	const q = `SELECT MIN(expires_at) FROM temp_events WHERE expires_at > UTC_TIMESTAMP()`
	var next sql.NullTime
	if err := r.db.QueryRowContext(ctx, q).Scan(&next); err != nil {
		return time.Time{}, false, err
	}
	if !next.Valid {
		return time.Time{}, false, nil
	}
	return next.Time, true, nil
}

func scanHolds(rows *sql.Rows) ([]model.TempHold, error) {
	var holds []model.TempHold
	for rows.Next() {
		var (
			h     model.TempHold
			guest sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.ListingID, &h.LocationID, &h.UserID, &guest,
			&h.StartsAt, &h.EndsAt, &h.HoldToken, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.GuestID = guest.String
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
