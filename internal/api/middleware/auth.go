package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/farefuse/farefuse/internal/auth"
)

// sessionKey is the context key for the caller's auth status.
type sessionKey struct{}

// Session attaches the caller's guest session to the context when the
// request carries a valid bearer token. Requests without one, or with an
// invalid one, pass through anonymously; no endpoint requires a session.
func Session(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !authService.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			status, err := authService.Check(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, status)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is case-insensitive.
func BearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "

	header := r.Header.Get("Authorization")
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// GetSession returns the caller's auth status and whether one was attached.
func GetSession(ctx context.Context) (auth.Status, bool) {
	status, ok := ctx.Value(sessionKey{}).(auth.Status)
	return status, ok
}

// GetSubject returns the authenticated guest subject, or "" when anonymous.
func GetSubject(ctx context.Context) string {
	status, _ := GetSession(ctx)
	return status.Subject
}
