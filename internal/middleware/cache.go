package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/rcastrillon77/photoloft-booking/internal/config"
)

// recordingWriter tees the response into a buffer while forwarding it to
// the client, so a successful body can be stored after the handler runs.
type recordingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if w.limit <= 0 {
		w.buf.Write(b)
	} else if remain := w.limit - w.size; remain > 0 {
		if int64(len(b)) <= remain {
			w.buf.Write(b)
		} else {
			w.buf.Write(b[:remain])
		}
	}
	w.size += int64(len(b))
	return w.ResponseWriter.Write(b)
}

// cacheKey derives a stable Redis key from the route template and, by
// default, the raw query.  Availability responses are identical for every
// caller (holds render as on_hold regardless of owner), so identity is
// deliberately not part of the key.  The listing id sits as its own key
// segment so a mutation can purge one listing's entries by pattern.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		tail = c.Path()
	case "method_route":
		tail = r.Method + ":" + c.Path()
	case "method_route_query":
		tail = r.Method + ":" + c.Path() + "?" + r.URL.RawQuery
	default: // route_query
		tail = c.Path() + "?" + r.URL.RawQuery
	}
	seg := c.Param("id")
	if seg == "" {
		seg = "-"
	}
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:resp:%s:%x", cfg.Prefix, seg, sum[:])
}

// purgePattern is the SCAN pattern matching every cached response for a
// listing; listingID 0 matches all listings.
func purgePattern(cfg config.CacheConfig, listingID uint64) string {
	if listingID == 0 {
		return cfg.Prefix + ":resp:*"
	}
	return fmt.Sprintf("%s:resp:%d:*", cfg.Prefix, listingID)
}

// PurgeCached drops every cached response for a listing (0 for all).
// Called after hold and booking mutations so other visitors stop seeing
// a just-taken slot as free for the remainder of the TTL.  Purge errors
// are returned for logging only; the hold-create re-check keeps a stale
// entry from ever turning into a double booking.
func PurgeCached(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig, listingID uint64) error {
	if rdb == nil {
		return nil
	}
	iter := rdb.Scan(ctx, 0, purgePattern(cfg, listingID), 100).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Stored payload layout: [4B status][4B headerLen][headerJSON][body].
// Replaying headers verbatim keeps cached responses byte-identical to
// fresh ones.

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// NewRedisCache returns a short-TTL response cache for the read-only
// availability endpoints.  Only 200 responses to configured methods are
// stored; with no Redis client the middleware is a pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			rw := &recordingWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = rw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rw.status != http.StatusOK {
				return nil
			}
			if maxBody > 0 && rw.size > maxBody {
				// truncated capture; storing it would replay a broken body
				return nil
			}
			hdr := make(http.Header, len(c.Response().Header()))
			for k, vals := range c.Response().Header() {
				// never replay one caller's guest cookie to another
				if strings.EqualFold(k, "Set-Cookie") {
					continue
				}
				hdr[k] = append([]string(nil), vals...)
			}
			if payload, err := encodePayload(rw.status, hdr, rw.buf.Bytes()); err == nil {
				_ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
			}
			return nil
		}
	}
}
