package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farefuse/farefuse/internal/api/middleware"
)

func TestSecurityHeaders(t *testing.T) {
	handler := middleware.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// Verify all security headers are set
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "geolocation=(), camera=(), microphone=()", rec.Header().Get("Permissions-Policy"))
}

func TestSecurityHeaders_PreservesExistingHeaders(t *testing.T) {
	handler := middleware.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Custom-Header", "custom-value")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom-value", rec.Header().Get("X-Custom-Header"))
	// Security headers should still be present
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRequireTLS(t *testing.T) {
	tests := []struct {
		name     string
		required bool
		proto    string
		want     int
	}{
		{name: "disabled allows http", required: false, proto: "http", want: http.StatusOK},
		{name: "enabled rejects http", required: true, proto: "http", want: http.StatusForbidden},
		{name: "enabled allows https", required: true, proto: "https", want: http.StatusOK},
		{name: "enabled allows direct connections", required: true, proto: "", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireTLS(tt.required)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"TLS required: this endpoint requires HTTPS"}`, rec.Body.String())
			}
		})
	}
}

func TestRequireOpsKey(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		sent       string
		wantStatus int
	}{
		{name: "matching key", key: "ops-secret", sent: "ops-secret", wantStatus: http.StatusOK},
		{name: "missing key", key: "ops-secret", sent: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", key: "ops-secret", sent: "ops-secreT", wantStatus: http.StatusUnauthorized},
		{name: "disabled without configured key", key: "", sent: "", wantStatus: http.StatusNotFound},
		{name: "disabled ignores any sent key", key: "", sent: "anything", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireOpsKey(tt.key)(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/ops/flags/invalidate", http.NoBody)
			if tt.sent != "" {
				req.Header.Set(middleware.OpsKeyHeader, tt.sent)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
