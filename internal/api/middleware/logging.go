package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger logs one line per request at a level matching the response
// status. Handlers reach a request-scoped child logger through zerolog.Ctx.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			ctx := r.Context()
			reqLog := log.With().Str("request_id", GetRequestID(ctx)).Logger()
			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				reqLog = reqLog.With().
					Str("trace_id", sc.TraceID().String()).
					Str("span_id", sc.SpanID().String()).
					Logger()
			}
			r = r.WithContext(reqLog.WithContext(ctx))

			next.ServeHTTP(rw, r)

			event := reqLog.Info()
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				event = reqLog.Error()
			case rw.statusCode >= http.StatusBadRequest:
				event = reqLog.Warn()
			}
			if driverID := GetDriverID(r.Context()); driverID != "" {
				event = event.Str("driver_id", driverID)
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", rw.statusCode).
				Int64("bytes", rw.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}
