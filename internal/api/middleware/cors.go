package middleware

import (
	"net/http"
	"time"

	"github.com/rs/cors"
)

// CORS allows browser front ends on the given origins. "*" allows any
// origin, in which case credentials are not allowed.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	anyOrigin := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
	}

	if anyOrigin {
		allowedOrigins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: !anyOrigin,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}).Handler
}
