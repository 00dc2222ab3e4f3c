package middleware

import (
	"crypto/sha1"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sevasetu/token-queue/internal/config"
)

// CacheJSON returns a middleware that caches successful JSON responses
// of GET endpoints in Redis for cfg.TTL.  It exists for the two polling
// routes (live queue view, stats): display boards re-request them every
// few seconds and the short TTL bounds the read load on the token store
// while keeping staleness well inside the polling interval.  Only
// status 200 responses are cached, and only whole JSON bodies; anything
// else passes through untouched.  A nil Redis client disables caching.
func CacheJSON(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)
			ctx := c.Request().Context()

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			// Miss: run the handler against a recording writer, then store
			// the body on success.
			rec := &recordingWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				return err
			}
			if rec.status == http.StatusOK && rec.body != nil {
				// Best effort; a failed SET only costs the next poll a read.
				_ = rdb.Set(ctx, key, rec.body, cfg.TTL).Err()
			}
			return nil
		}
	}
}

// cacheKey hashes route and query so distinct queue keys cache apart.
func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// recordingWriter captures the response body and status while
// forwarding both to the client.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.status == http.StatusOK {
		w.body = append(w.body, b...)
	}
	return w.ResponseWriter.Write(b)
}
