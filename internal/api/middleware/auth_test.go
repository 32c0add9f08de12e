package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farefuse/farefuse/internal/api/middleware"
	"github.com/farefuse/farefuse/internal/auth"
)

func captureSession(t *testing.T, svc *auth.Service, header string) (auth.Status, bool, int) {
	t.Helper()

	var (
		status auth.Status
		ok     bool
	)
	handler := middleware.Session(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, ok = middleware.GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return status, ok, rec.Code
}

func TestSession_ValidToken(t *testing.T) {
	svc := testAuthService()
	session, err := svc.Login(context.Background())
	require.NoError(t, err)

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			status, ok, code := captureSession(t, svc, prefix+session.AccessToken)

			assert.Equal(t, http.StatusOK, code)
			require.True(t, ok)
			assert.True(t, status.Authenticated)
			assert.Equal(t, session.Subject, status.Subject)
		})
	}
}

func TestSession_AnonymousPassThrough(t *testing.T) {
	svc := testAuthService()

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"invalid token", "Bearer invalid.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, code := captureSession(t, svc, tt.header)

			assert.Equal(t, http.StatusOK, code)
			assert.False(t, ok)
		})
	}
}

func TestSession_DisabledService(t *testing.T) {
	_, ok, code := captureSession(t, nil, "Bearer whatever")

	assert.Equal(t, http.StatusOK, code)
	assert.False(t, ok)
}

func TestGetSubject_NoSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetSubject(req.Context()))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer  abc ")

	token, ok := middleware.BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}
