package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot answer.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limiter has no redis client")

// windowScript counts a hit and arms the window expiry on the first one.
// It returns the count and the milliseconds left in the window.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Window is the state of one caller's fixed window after a hit.
type Window struct {
	Count     int64
	Limit     int
	Remaining time.Duration
}

// Allowed reports whether the hit fit in the window.
func (w Window) Allowed() bool {
	return w.Count <= int64(w.Limit)
}

func limiterBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return true
	}
	return false
}

func rateLimitKey(resource, id string) string {
	return "rl:" + resource + ":" + id
}

// hit records one request against resource/id.
func hit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Window, error) {
	w := Window{Limit: limit}
	if rdb == nil {
		return w, errNoLimiterStore
	}

	res, err := windowScript.Run(ctx, rdb, []string{rateLimitKey(resource, id)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return w, err
	}
	w.Count = res[0]
	if res[1] > 0 {
		w.Remaining = time.Duration(res[1]) * time.Millisecond
	}
	return w, nil
}

// CheckRateLimit counts one request for resource/id in a fixed window and
// reports whether it is within limit. Limiting is off in development and
// test.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if limiterBypassed() {
		return true, nil
	}
	w, err := hit(ctx, rdb, resource, id, limit, window)
	if err != nil {
		return false, err
	}
	return w.Allowed(), nil
}

// RateLimit allows limit requests per window per caller and fails open.
// Callers are keyed by authenticated user when known, otherwise by IP.
// The optional name groups routes under one counter.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit FailPolicy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiterBypassed() {
			return c.Next()
		}

		resource := c.Path()
		if len(name) > 0 && name[0] != "" {
			resource = name[0]
		}
		caller := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(fmt.Stringer); ok {
			caller = "user:" + uid.String()
		}

		w, err := hit(c.UserContext(), rdb, resource, caller, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable, rejecting",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		if !w.Allowed() {
			c.Set("X-RateLimit-Remaining", "0")
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(w.Remaining.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-w.Count, 10))
		return c.Next()
	}
}
