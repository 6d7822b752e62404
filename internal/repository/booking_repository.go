package repository

import (
	"context"
	"database/sql"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// BookingRepo provides access to the bookings table backing the
// reservation management page.  Creation and cancellation run inside
// caller-supplied transactions so the paired events-table write commits
// or rolls back with them.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided
// database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, listing_id, location_id, user_id, guest_id, start_at, end_at,
	guests, rate_cents, discount_cents, total_cents, refund_cents, credit_cents, status, created_at`

// CreateTx inserts a confirmed booking within the provided transaction.
// On success the booking's ID is populated with the auto-generated
// value.  The caller must commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (listing_id, location_id, user_id, guest_id, start_at, end_at, guests,
	            rate_cents, discount_cents, total_cents, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.ListingID, b.LocationID, b.UserID, nullString(b.GuestID),
		b.StartsAt.UTC(), b.EndsAt.UTC(), b.Guests,
		b.RateCents, b.DiscountCents, b.TotalCents, model.BookingConfirmed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingConfirmed
	return nil
}

// ListByOwner returns every booking the owner has made, newest first.
// An owner with no bookings gets an empty slice, not an error.
func (r *BookingRepo) ListByOwner(ctx context.Context, owner model.Owner) ([]model.Booking, error) {
	clause, arg := ownerClause(owner)
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + clause + ` ORDER BY start_at DESC`
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// GetByIDForOwner fetches a single booking and enforces ownership in
// the repository layer.  It returns sql.ErrNoRows when the booking does
// not exist and ErrForbidden when it belongs to someone else, so
// handlers can answer 404 and 403 distinctly.
func (r *BookingRepo) GetByIDForOwner(ctx context.Context, id uint64, owner model.Owner) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, err
	}
	if !ownedBy(b, owner) {
		return nil, ErrForbidden
	}
	return b, nil
}

// CancelTx marks a booking cancelled and records the refund/credit
// split, within the provided transaction.  Cancelling an already
// cancelled booking returns ErrConflict so the handler can answer 409
// instead of silently double-cancelling.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, refundCents, creditCents uint32) error {
	const q = `UPDATE bookings SET status = ?, refund_cents = ?, credit_cents = ?
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.BookingCancelled, refundCents, creditCents, id, model.BookingConfirmed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b     model.Booking
		guest sql.NullString
	)
	if err := row.Scan(&b.ID, &b.ListingID, &b.LocationID, &b.UserID, &guest,
		&b.StartsAt, &b.EndsAt, &b.Guests, &b.RateCents, &b.DiscountCents,
		&b.TotalCents, &b.RefundCents, &b.CreditCents, &b.Status, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.GuestID = guest.String
	return &b, nil
}

func ownedBy(b *model.Booking, o model.Owner) bool {
	if o.UserID != nil {
		return b.UserID != nil && *b.UserID == *o.UserID
	}
	return o.GuestID != "" && b.GuestID == o.GuestID
}
