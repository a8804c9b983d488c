package middleware

import (
	"net/http"
	"net/netip"
	"time"

	"vyre/backend/internal/telemetry"
)

// RequestTelemetry emits an http_request event after each request. Emission is asynchronous and
// best-effort. Requests whose route pattern is in skip (e.g. "GET /health") are not emitted.
// Like RequestLogging it must receive the same request the mux serves.
func RequestTelemetry(emitter telemetry.EventEmitter, trusted []netip.Prefix, skip map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			route := routeLabel(r)
			if skip[route] {
				return
			}
			telemetry.EmitAsync(emitter, &telemetry.Event{
				EventType: telemetry.EventHTTPRequest,
				Source:    telemetry.SourceHTTP,
				IPAddress: resolveClientIP(r, trusted),
				Metadata: map[string]any{
					"method":      r.Method,
					"route":       route,
					"status":      rec.status,
					"duration_ms": time.Since(start).Milliseconds(),
				},
			})
		})
	}
}
