package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/farefuse/farefuse/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// AuthRateLimit applies to authentication endpoints (10 req/min).
	AuthRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// SearchRateLimit applies to searches, each of which fans out to many
	// oracle calls (30 req/min).
	SearchRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to cheap read endpoints (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware keyed by client IP.
// Uses X-Forwarded-For / X-Real-IP when present.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler(cfg)),
	)
}

// RateLimitBySession limits each client IP and each guest subject to cfg.
// A request must fit both budgets, so guest tokens minted from one IP do
// not add to that IP's allowance. Anonymous callers are keyed by IP only.
func RateLimitBySession(cfg RateLimitConfig) func(http.Handler) http.Handler {
	byIP := RateLimitByIP(cfg)
	bySubject := httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyBySubjectOrIP),
		httprate.WithLimitHandler(rateLimitExceededHandler(cfg)),
	)
	return func(next http.Handler) http.Handler {
		return byIP(bySubject(next))
	}
}

func keyBySubjectOrIP(r *http.Request) (string, error) {
	if subject := GetSubject(r.Context()); subject != "" {
		return "subject:" + subject, nil
	}
	return httprate.KeyByRealIP(r)
}

// rateLimitExceededHandler writes a 429 with a Retry-After of one window.
func rateLimitExceededHandler(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").Write(w)
	}
}
