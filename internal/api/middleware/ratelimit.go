package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/chargeroute/chargeroute/internal/api/models"
)

// RateLimitConfig is a fixed request budget per sliding window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Per-minute defaults by endpoint category.
var (
	AuthRateLimit      = PerMinute(10)
	ExpensiveRateLimit = PerMinute(30)
	StandardRateLimit  = PerMinute(100)
)

// PerMinute returns a limit of n requests per minute.
func PerMinute(n int) RateLimitConfig {
	return RateLimitConfig{RequestLimit: n, WindowLength: time.Minute}
}

// RateLimitByIP limits by client address. It relies on chi's RealIP having
// already resolved X-Forwarded-For.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, httprate.KeyByRealIP)
}

// RateLimitByDriver limits by authenticated driver, falling back to the
// client address for anonymous requests.
func RateLimitByDriver(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, keyByDriverOrIP)
}

func limit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(limitExceeded(cfg.WindowLength)),
	)
}

func keyByDriverOrIP(r *http.Request) (string, error) {
	if driverID := GetDriverID(r.Context()); driverID != "" {
		return "driver:" + driverID, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceeded writes a 429 problem. httprate does not expose the reset
// time, so Retry-After is the full window.
func limitExceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))
	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.ProblemForStatus(http.StatusTooManyRequests, GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
		problem.Instance = r.URL.Path
		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w)
	}
}
