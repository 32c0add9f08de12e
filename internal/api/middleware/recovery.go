package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/farefuse/farefuse/internal/api/models"
)

// Recovery turns a handler panic into a 500 JSON error and records it on
// the request span. http.ErrAbortHandler is re-panicked so net/http can
// abort the connection. If the handler already started its response, only
// the log line and span status are written.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)

			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}

				requestID := GetRequestID(r.Context())
				span := trace.SpanFromContext(r.Context())
				span.RecordError(fmt.Errorf("panic: %v", p))
				span.SetStatus(codes.Error, "panic")

				log.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", p).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if rec.wroteHeader {
					return
				}
				models.NewInternalError(requestID, "Internal server error").Write(rec)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
