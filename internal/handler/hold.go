package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rcastrillon77/photoloft-booking/internal/booking"
	"github.com/rcastrillon77/photoloft-booking/internal/middleware"
	"github.com/rcastrillon77/photoloft-booking/internal/model"
	"github.com/rcastrillon77/photoloft-booking/internal/repository"
	"github.com/rcastrillon77/photoloft-booking/internal/service"
)

// HoldHandler manages the temporary hold a visitor takes on a slot when
// continuing past selection.  A hold blocks the buffered interval for
// everyone else exactly like a confirmed event until it expires or is
// released.  All methods assume the Identity middleware has run.
type HoldHandler struct {
	Listings *repository.ListingRepo
	Holds    *repository.HoldRepo
	Rates    *repository.SpecialRateRepo
	Avail    *service.AvailabilityService
	Sweeper  *service.Sweeper
	HoldTTL  time.Duration // how long a fresh hold lives (10 minutes)
}

// NewHoldHandler constructs a HoldHandler with the provided
// dependencies.  All of them must be non-nil.
func NewHoldHandler(listings *repository.ListingRepo, holds *repository.HoldRepo, rates *repository.SpecialRateRepo, avail *service.AvailabilityService, sweeper *service.Sweeper, holdTTL time.Duration) *HoldHandler {
	if listings == nil || holds == nil || rates == nil || avail == nil || sweeper == nil {
		panic("nil dependency passed to NewHoldHandler")
	}
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	return &HoldHandler{Listings: listings, Holds: holds, Rates: rates, Avail: avail, Sweeper: sweeper, HoldTTL: holdTTL}
}

// holdRequest is the JSON body for creating a hold.
type holdRequest struct {
	Date        string  `json:"date"`           // YYYY-MM-DD in the listing zone
	StartMin    int     `json:"start"`          // minutes from local midnight
	DurationMin int     `json:"duration"`       // minutes
	Hours       float64 `json:"duration_hours"` // alternative: fractional hours
	Guests      int     `json:"guests"`
}

// Create handles POST /v1/listings/:id/hold.  It re-checks the slot
// against confirmed events and everyone else's live holds, releases any
// previous hold of the caller, and inserts the new one with a fresh
// expiry.  The release-then-insert pair is not atomic; an interruption
// leaves at worst a stale row for the sweep, never a double booking.
// A visitor who cannot get a hold cannot proceed, so every failure here
// is surfaced as a blocking error.
func (h *HoldHandler) Create(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := listingParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var body holdRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing date"})
	}
	durationMin := body.DurationMin
	if durationMin == 0 && body.Hours > 0 {
		durationMin = booking.NormalizeDuration(body.Hours)
	}
	if durationMin <= 0 || body.StartMin < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start or duration"})
	}

	ctx := c.Request().Context()
	l, err := h.Listings.GetByID(ctx, listingID)
	if err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		c.Logger().Errorf("hold create: load listing: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	ws, err := h.Listings.WeeklySchedule(ctx, listingID)
	if err != nil {
		c.Logger().Errorf("hold create: load schedule: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	now := time.Now().UTC()
	bctx, open := booking.NewContext(l, ws, middleware.Tier(c), date, now)
	if !open {
		return c.JSON(http.StatusConflict, echo.Map{"error": "listing is closed on that date"})
	}

	sel := booking.NewSelection(bctx).WithDuration(bctx, durationMin).WithStart(bctx, body.StartMin)
	if body.Guests > 0 {
		sel = sel.WithGuests(l.Capacity, body.Guests)
	}
	if sel.StartMin < bctx.OpenMin || sel.EndMin > bctx.CloseMin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot outside operating window"})
	}

	// Collect any expired rows opportunistically so the re-check below
	// runs against live holds only.
	h.Sweeper.Sweep(ctx)

	// A new hold supersedes any previous one of the same owner; at most
	// one hold per owner is ever honored.
	if _, err := h.Holds.DeleteByOwner(ctx, owner, listingID); err != nil {
		c.Logger().Errorf("hold create: release previous: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release previous hold"})
	}

	dayStart := bctx.Date
	events, err := h.Avail.DayIntervals(ctx, l, bctx)
	if err != nil {
		c.Logger().Errorf("hold create: load events: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !bctx.IsSlotFree(sel.StartMin, sel.DurationMin, events.Events) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot no longer available", "reason": "booked"})
	}
	if !bctx.IsSlotFree(sel.StartMin, sel.DurationMin, events.Holds) {
		// Distinct from "booked": someone else is mid-checkout on this range.
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot no longer available", "reason": "on_hold"})
	}

	sr, err := h.Rates.ForDate(ctx, l.ID, dayStart)
	if err != nil {
		c.Logger().Errorf("hold create: load special rate: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	sel = sel.Priced(bctx, sr)

	hold := &model.TempHold{
		ListingID:  l.ID,
		LocationID: l.LocationID,
		UserID:     owner.UserID,
		GuestID:    owner.GuestID,
		StartsAt:   dayStart.Add(time.Duration(sel.StartMin) * time.Minute),
		EndsAt:     dayStart.Add(time.Duration(sel.EndMin) * time.Minute),
		ExpiresAt:  now.Add(h.HoldTTL),
	}
	if err := h.Holds.Create(ctx, hold); err != nil {
		c.Logger().Errorf("hold create: insert: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create hold"})
	}

	h.Sweeper.ArmFor(hold.ExpiresAt)
	h.Avail.Invalidate(l.ID)

	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":    hold.ID,
		"hold_token": hold.HoldToken,
		"expires_at": hold.ExpiresAt.Format(time.RFC3339),
		"selection":  sel,
	})
}

// Release handles DELETE /v1/listings/:id/hold.  Releasing is
// idempotent: the countdown hitting zero, a back navigation and an
// explicit release can all fire for the same hold and every one of
// them succeeds.
func (h *HoldHandler) Release(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := listingParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx := c.Request().Context()
	n, err := h.Holds.DeleteByOwner(ctx, owner, listingID)
	if err != nil {
		c.Logger().Errorf("hold release: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release hold"})
	}
	if n > 0 {
		h.Avail.Invalidate(listingID)
	}
	h.Sweeper.Rearm(ctx)
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// Current handles GET /v1/hold.  It returns the caller's newest live
// hold so a returning visitor resumes at the confirmation step instead
// of re-selecting a slot.  No hold is an ordinary empty answer.
func (h *HoldHandler) Current(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	hold, err := h.Holds.NewestActiveByOwner(c.Request().Context(), owner)
	if err != nil {
		c.Logger().Errorf("hold current: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if hold == nil {
		return c.JSON(http.StatusOK, echo.Map{"hold": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hold": echo.Map{
			"hold_id":    hold.ID,
			"hold_token": hold.HoldToken,
			"listing_id": hold.ListingID,
			"starts_at":  hold.StartsAt.Format(time.RFC3339),
			"ends_at":    hold.EndsAt.Format(time.RFC3339),
			"expires_at": hold.ExpiresAt.Format(time.RFC3339),
		},
	})
}
