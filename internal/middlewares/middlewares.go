package middlewares

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func reject(c echo.Context, status int, code string) error {
	return c.JSON(status, map[string]interface{}{"ok": false, "error": code})
}

// RequireAPIKey gates mutating endpoints behind the pre-shared key, read
// from the X-Api-Key header. An unset key means the deployment is broken,
// not open, so requests are refused.
func RequireAPIKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return reject(c, http.StatusInternalServerError, "api_key_not_configured")
			}

			provided := c.Request().Header.Get("X-Api-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				return reject(c, http.StatusUnauthorized, "bad_api_key")
			}

			return next(c)
		}
	}
}

// RateLimitDaily caps how many times a day a route may be hit, counted in
// Redis with a key that rolls over at midnight UTC. A nil client disables
// the limit for local setups without Redis.
func RateLimitDaily(rdb *redis.Client, name string, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || limit <= 0 {
				return next(c)
			}

			ctx := c.Request().Context()
			key := fmt.Sprintf("rate:%s:%s", name, time.Now().UTC().Format("2006-01-02"))

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Redis being down should not take the endpoint with it.
				c.Logger().Errorf("Rate limit check failed: %v", err)
				return next(c)
			}
			if count == 1 {
				rdb.Expire(ctx, key, 24*time.Hour)
			}

			if count > limit {
				return reject(c, http.StatusTooManyRequests, "rate_limited")
			}

			return next(c)
		}
	}
}
