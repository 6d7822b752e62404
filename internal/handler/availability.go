package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rcastrillon77/photoloft-booking/internal/booking"
	"github.com/rcastrillon77/photoloft-booking/internal/middleware"
	"github.com/rcastrillon77/photoloft-booking/internal/repository"
	"github.com/rcastrillon77/photoloft-booking/internal/service"
)

// AvailabilityHandler serves the slot views the booking widget renders:
// the slot list for a date, the longest bookable duration, and the
// forward scan for the next open date.  Closed days and empty windows
// are ordinary 200 responses; only store failures become errors, and
// then the client keeps whatever it rendered last.
type AvailabilityHandler struct {
	Avail *service.AvailabilityService
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(avail *service.AvailabilityService) *AvailabilityHandler {
	if avail == nil {
		panic("nil availability service passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Avail: avail}
}

// Day handles GET /v1/listings/:id/availability.  Query parameters:
// date (YYYY-MM-DD, required), duration (minutes) or duration_hours
// (fractional hours, normalized to minutes).  Without a duration the
// listing's default applies.
func (h *AvailabilityHandler) Day(c echo.Context) error {
	listingID, err := listingParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	date, err := dateQuery(c, "date")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing date"})
	}
	durationMin, err := durationQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid duration"})
	}

	snap, err := h.Avail.Day(c.Request().Context(), listingID, middleware.Tier(c), date, durationMin)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		c.Logger().Errorf("availability day: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":         date.Format("2006-01-02"),
		"availability": snap,
	})
}

// MaxDuration handles GET /v1/listings/:id/availability/max.  It
// returns the longest bookable run for the date; a closed or fully
// booked day answers 0, not an error.
func (h *AvailabilityHandler) MaxDuration(c echo.Context) error {
	listingID, err := listingParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	date, err := dateQuery(c, "date")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing date"})
	}
	max, err := h.Avail.MaxDuration(c.Request().Context(), listingID, middleware.Tier(c), date)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		c.Logger().Errorf("availability max: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":             date.Format("2006-01-02"),
		"max_duration_min": max,
	})
}

// NextDate handles GET /v1/listings/:id/availability/next.  Query
// parameters: from (YYYY-MM-DD, defaults to today on the listing's
// wall clock) and days (lookahead window, default 30, capped by the
// listing's booking window).  A scan with no hit is the "no slots in
// window" empty state, still HTTP 200.
func (h *AvailabilityHandler) NextDate(c echo.Context) error {
	listingID, err := listingParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var from time.Time // zero lets the service default to the listing's today
	if c.QueryParam("from") != "" {
		if from, err = dateQuery(c, "from"); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
		}
	}
	days := 30
	if v := c.QueryParam("days"); v != "" {
		if days, err = strconv.Atoi(v); err != nil || days < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid days"})
		}
	}

	date, ok, err := h.Avail.NextDate(c.Request().Context(), listingID, middleware.Tier(c), from, days)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		c.Logger().Errorf("availability next: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{
			"date":    nil,
			"message": "no availability in window",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date": date.Format("2006-01-02"),
	})
}

// listingParam parses the :id path parameter shared by every listing
// route.
func listingParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid listing id")
	}
	return id, nil
}

// dateQuery parses a YYYY-MM-DD query parameter.  The result carries
// the requested calendar day at UTC midnight; the engine re-anchors it
// in the listing zone.
func dateQuery(c echo.Context, name string) (time.Time, error) {
	return time.Parse("2006-01-02", c.QueryParam(name))
}

// durationQuery reads the requested duration: either `duration` in
// minutes or `duration_hours` as fractional hours normalized to
// minutes.  0 means "use the listing default".
func durationQuery(c echo.Context) (int, error) {
	if v := c.QueryParam("duration"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, errors.New("invalid duration")
		}
		return n, nil
	}
	if v := c.QueryParam("duration_hours"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return 0, errors.New("invalid duration")
		}
		return booking.NormalizeDuration(f), nil
	}
	return 0, nil
}
