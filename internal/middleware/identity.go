// Package middleware provides the HTTP middleware the widget API runs
// behind: identity resolution, rate limiting and response caching.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/rcastrillon77/photoloft-booking/internal/model"
)

// Context keys set by Identity and read by handlers and the rate limiter.
const (
	ctxOwner    = "owner"     // model.Owner of the request
	ctxTier     = "tier"      // membership tier string
	ctxOwnerKey = "owner_key" // stable string form of the owner for keying
)

// GuestCookieName is the cookie carrying a visitor's random guest id.
const GuestCookieName = "plb_guest"

// DefaultTier applies when the session token carries no tier claim or
// the visitor is a guest.
const DefaultTier = "standard"

// Identity resolves who is making the request.  Unlike a gatekeeping
// auth middleware it never rejects: a valid Bearer token from the host
// session yields a member identity (subject id + membership tier
// claim), anything else falls back to a guest id cookie, issued here on
// first contact.  Holds and bookings are owned by whichever identity
// was resolved, so the widget works identically for members and
// anonymous visitors.
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			owner, tier := memberFromToken(c, secret)
			if !owner.Known() {
				owner.GuestID = guestID(c)
			}
			c.Set(ctxOwner, owner)
			c.Set(ctxTier, tier)
			c.Set(ctxOwnerKey, ownerKey(owner))
			return next(c)
		}
	}
}

// Owner returns the identity resolved for the request.  The bool is
// false when Identity did not run.
func Owner(c echo.Context) (model.Owner, bool) {
	o, ok := c.Get(ctxOwner).(model.Owner)
	return o, ok && o.Known()
}

// Tier returns the membership tier resolved for the request.
func Tier(c echo.Context) string {
	if t, ok := c.Get(ctxTier).(string); ok && t != "" {
		return t
	}
	return DefaultTier
}

// memberFromToken parses an optional Bearer token. The sub claim is the
// member id and the tier claim selects the schedule table. An absent or
// invalid token is not an error; the request simply proceeds as guest.
func memberFromToken(c echo.Context, secret string) (model.Owner, string) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Owner{}, DefaultTier
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject any signing method other than HMAC; the secret is shared
		// with the host environment that issues session tokens.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Owner{}, DefaultTier
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Owner{}, DefaultTier
	}
	tier := DefaultTier
	if t, ok := claims["tier"].(string); ok && t != "" {
		tier = t
	}
	// Numeric JSON claims decode as float64.
	if sub, ok := claims["sub"].(float64); ok && sub > 0 {
		id := uint64(sub)
		return model.Owner{UserID: &id}, tier
	}
	return model.Owner{}, tier
}

// guestID reads the guest cookie, minting and setting a fresh random id
// when the visitor has none yet.
func guestID(c echo.Context) string {
	if ck, err := c.Cookie(GuestCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	id := hex.EncodeToString(b)
	c.SetCookie(&http.Cookie{
		Name:     GuestCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func ownerKey(o model.Owner) string {
	if o.UserID != nil {
		return "user:" + strconv.FormatUint(*o.UserID, 10)
	}
	if o.GuestID != "" {
		return "guest:" + o.GuestID
	}
	return "anon"
}
