package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestLog attaches a request-scoped zerolog logger (request id, client
// IP) to the context, stores the client IP for the audit logger, echoes the
// request id in X-Request-Id, and logs one line per request on completion.
// It wraps the whole mux, so the completion line reads r.Pattern after
// routing has filled it in.
func RequestLog(base zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ip := ClientIP(r)

			zl := base.With().
				Str("request_id", requestID).
				Str("ip", ip).
				Logger()
			ctx := zl.WithContext(r.Context())
			ctx = WithClientIP(ctx, ip)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-Id", requestID)
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)

			zl.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", r.Pattern).
				Int("status", sr.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
