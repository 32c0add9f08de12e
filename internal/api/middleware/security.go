package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/farefuse/farefuse/internal/api/models"
)

// SecurityHeaders adds standard security headers to all HTTP responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests that a load balancer reports as plain HTTP
// via X-Forwarded-Proto. Requests without the header are allowed.
func RequireTLS(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewForbidden(GetRequestID(r.Context()), "TLS required: this endpoint requires HTTPS").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OpsKeyHeader carries the operator key for mutating ops endpoints.
const OpsKeyHeader = "X-Ops-Key"

// RequireOpsKey admits requests whose X-Ops-Key matches key. With an empty
// key the wrapped routes are disabled and answer 404.
func RequireOpsKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				models.NewError(http.StatusNotFound, GetRequestID(r.Context()), "Not found").Write(w)
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(OpsKeyHeader)), []byte(key)) != 1 {
				models.NewError(http.StatusUnauthorized, GetRequestID(r.Context()), "Invalid or missing ops key").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
