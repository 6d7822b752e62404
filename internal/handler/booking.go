package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rcastrillon77/photoloft-booking/internal/booking"
	"github.com/rcastrillon77/photoloft-booking/internal/middleware"
	"github.com/rcastrillon77/photoloft-booking/internal/model"
	"github.com/rcastrillon77/photoloft-booking/internal/queue"
	"github.com/rcastrillon77/photoloft-booking/internal/repository"
	"github.com/rcastrillon77/photoloft-booking/internal/service"
)

// BookingHandler turns holds into confirmed bookings and backs the
// reservation management page: listing, inspecting and cancelling
// bookings.  All methods assume the Identity middleware has run.
// Confirmation and cancellation run their paired bookings/events writes
// inside a transaction to guarantee atomicity; the webhook call happens
// before any write so a webhook failure leaves everything retryable.
type BookingHandler struct {
	Listings *repository.ListingRepo
	Holds    *repository.HoldRepo
	Events   *repository.EventRepo
	Bookings *repository.BookingRepo
	Rates    *repository.SpecialRateRepo
	Avail    *service.AvailabilityService
	Sweeper  *service.Sweeper
	Webhooks *service.WebhookClient
}

// NewBookingHandler constructs a BookingHandler with the provided
// dependencies.  All of them must be non-nil.
func NewBookingHandler(listings *repository.ListingRepo, holds *repository.HoldRepo, events *repository.EventRepo, bookings *repository.BookingRepo, rates *repository.SpecialRateRepo, avail *service.AvailabilityService, sweeper *service.Sweeper, webhooks *service.WebhookClient) *BookingHandler {
	if listings == nil || holds == nil || events == nil || bookings == nil || rates == nil || avail == nil || sweeper == nil || webhooks == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Listings: listings,
		Holds:    holds,
		Events:   events,
		Bookings: bookings,
		Rates:    rates,
		Avail:    avail,
		Sweeper:  sweeper,
		Webhooks: webhooks,
	}
}

// Confirm handles POST /v1/listings/:id/confirm.  It finalises the
// caller's newest live hold into a booking: prices the held range,
// requests a payment intent, then writes the booking and its occupying
// event in one transaction and publishes a booking.confirmed message.
// The hold is deleted afterwards; if that delete is interrupted the
// stale row is collected by the sweep and never double-blocks anything
// the new event does not already block.
func (h *BookingHandler) Confirm(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := listingParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var body struct {
		Guests int `json:"guests"`
	}
	_ = c.Bind(&body) // guests is optional; an empty body is fine

	ctx := c.Request().Context()
	hold, err := h.Holds.NewestActiveByOwner(ctx, owner)
	if err != nil {
		c.Logger().Errorf("confirm: load hold: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if hold == nil || hold.ListingID != listingID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no active hold for this listing"})
	}

	l, err := h.Listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		c.Logger().Errorf("confirm: load listing: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	ws, err := h.Listings.WeeklySchedule(ctx, listingID)
	if err != nil {
		c.Logger().Errorf("confirm: load schedule: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := time.Now().UTC()
	loc := l.Location()
	dayStart := booking.Midnight(hold.StartsAt, loc)
	bctx, open := booking.NewContext(l, ws, middleware.Tier(c), dayStart, now)
	if !open {
		// The schedule changed underneath the hold; the slot no longer exists.
		return c.JSON(http.StatusConflict, echo.Map{"error": "listing is closed on that date"})
	}

	startMin := int(hold.StartsAt.In(loc).Sub(dayStart) / time.Minute)
	durationMin := int(hold.EndsAt.Sub(hold.StartsAt) / time.Minute)
	sr, err := h.Rates.ForDate(ctx, l.ID, dayStart)
	if err != nil {
		c.Logger().Errorf("confirm: load special rate: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	sel := booking.NewSelection(bctx).WithDuration(bctx, durationMin).WithStart(bctx, startMin)
	if body.Guests > 0 {
		sel = sel.WithGuests(l.Capacity, body.Guests)
	}
	sel = sel.Priced(bctx, sr)

	// Ask for the payment intent while the hold still protects the slot.
	// On failure nothing has changed and the user can simply retry.
	intent := service.PaymentIntentRequest{
		HoldToken:     hold.HoldToken,
		ListingID:     l.ID,
		ListingName:   l.Name,
		Date:          dayStart.Format("2006-01-02"),
		Start:         hold.StartsAt.In(loc).Format("15:04"),
		End:           hold.EndsAt.In(loc).Format("15:04"),
		Guests:        sel.Guests,
		RateCents:     sel.RateCents,
		DiscountCents: sel.DiscountCents,
		TotalCents:    sel.TotalCents,
	}
	if err := h.Webhooks.SendPaymentIntent(ctx, intent); err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment service unavailable", "retry": true})
	}

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	bk := &model.Booking{
		ListingID:     l.ID,
		LocationID:    l.LocationID,
		UserID:        owner.UserID,
		GuestID:       owner.GuestID,
		StartsAt:      hold.StartsAt,
		EndsAt:        hold.EndsAt,
		Guests:        sel.Guests,
		RateCents:     sel.RateCents,
		DiscountCents: sel.DiscountCents,
		TotalCents:    sel.TotalCents,
	}
	if err := h.Bookings.CreateTx(ctx, tx, bk); err != nil {
		c.Logger().Errorf("confirm: create booking: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}
	ev := &model.Event{
		ListingID:  l.ID,
		LocationID: l.LocationID,
		StartsAt:   hold.StartsAt,
		EndsAt:     hold.EndsAt,
	}
	if err := h.Events.CreateTx(ctx, tx, ev); err != nil {
		c.Logger().Errorf("confirm: create event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	// The event now blocks the range, so losing this delete only leaves
	// a redundant row for the sweep.
	if _, err := h.Holds.DeleteByOwner(ctx, owner, listingID); err != nil {
		c.Logger().Warnf("confirm: release hold after booking: %v", err)
	}
	h.Avail.Invalidate(l.ID)
	h.Sweeper.Rearm(ctx)

	msg := queue.BookingConfirmedEvent{
		BookingID:     bk.ID,
		ListingID:     l.ID,
		ListingName:   l.Name,
		LocationID:    l.LocationID,
		GuestID:       owner.GuestID,
		Date:          intent.Date,
		StartsAt:      intent.Start,
		EndsAt:        intent.End,
		DurationMin:   sel.DurationMin,
		Guests:        sel.Guests,
		RateCents:     sel.RateCents,
		DiscountCents: sel.DiscountCents,
		TotalCents:    sel.TotalCents,
		ConfirmedAt:   now.Format(time.RFC3339),
	}
	if owner.UserID != nil {
		msg.UserID = *owner.UserID
	}
	// Broker failures must not fail a committed booking.
	_ = service.PublishBookingConfirmed(ctx, msg)

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":  bk.ID,
		"total_cents": sel.TotalCents,
		"selection":   sel,
	})
}

// List handles GET /v1/my-bookings.  It returns all bookings created by
// the current caller, newest first.  When none exist it returns an
// empty array.
func (h *BookingHandler) List(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByOwner(c.Request().Context(), owner)
	if err != nil {
		c.Logger().Errorf("bookings list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.  It returns a single booking for
// the caller: 404 when it does not exist, 403 when it belongs to
// someone else.
func (h *BookingHandler) Get(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.GetByIDForOwner(c.Request().Context(), id, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		c.Logger().Errorf("booking get: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Cancel handles DELETE /v1/bookings/:id.  It cancels a confirmed
// booking before its start: the refund/credit split is computed from
// the cancellation notice, the fulfillment service is notified, and
// only then are the booking row and its occupying event updated in one
// transaction.  A failed webhook leaves the booking untouched so the
// cancellation can be retried.
func (h *BookingHandler) Cancel(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	b, err := h.Bookings.GetByIDForOwner(ctx, id, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		c.Logger().Errorf("booking cancel: load: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	now := time.Now().UTC()
	if b.Status != model.BookingConfirmed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	}
	if !b.StartsAt.After(now) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already started"})
	}

	refund, credit := booking.RefundSplit(b, now)
	if err := h.Webhooks.SendCancellation(ctx, service.CancellationRequest{
		BookingID:   b.ID,
		RefundCents: refund,
		CreditCents: credit,
	}); err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "cancellation service unavailable", "retry": true})
	}

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Bookings.CancelTx(ctx, tx, b.ID, refund, credit); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		}
		c.Logger().Errorf("booking cancel: update: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	if err := h.Events.DeleteForBookingTx(ctx, tx, b); err != nil {
		c.Logger().Errorf("booking cancel: free event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.Avail.Invalidate(b.ListingID)

	return c.JSON(http.StatusOK, echo.Map{
		"cancelled":    true,
		"refund_cents": refund,
		"credit_cents": credit,
	})
}
