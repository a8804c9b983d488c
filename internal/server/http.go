// Package server assembles the HTTP API: routes, per-route middleware and the outer request chain.
package server

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vyre/backend/internal/activity"
	activityhandler "vyre/backend/internal/activity/handler"
	companyhandler "vyre/backend/internal/company/handler"
	healthhandler "vyre/backend/internal/health/handler"
	identityhandler "vyre/backend/internal/identity/handler"
	"vyre/backend/internal/platform/respond"
	"vyre/backend/internal/server/middleware"
	teamhandler "vyre/backend/internal/team/handler"
	"vyre/backend/internal/telemetry"
	userhandler "vyre/backend/internal/user/handler"
)

// Deps holds the handlers and cross-cutting dependencies of the HTTP API.
type Deps struct {
	Auth     *identityhandler.AuthHandler
	Users    *userhandler.Handler
	Team     *teamhandler.Handler
	Settings *companyhandler.SettingsHandler
	Activity *activityhandler.Handler
	Health   *healthhandler.Handler

	// Authenticator guards every route outside /auth and /health.
	Authenticator *middleware.Authenticator
	// Recorder writes the activity feed for successful mutating requests. If nil, nothing is recorded.
	Recorder activity.Recorder
	// Events receives one http_request event per API request. If nil, none are emitted.
	Events telemetry.EventEmitter
	// Registry collects the HTTP metrics served at /metrics. If nil, /metrics is not registered.
	Registry *prometheus.Registry
	Logger   *slog.Logger
	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP headers are honoured.
	TrustedProxies []netip.Prefix
}

// untracked routes are neither emitted as telemetry nor expected to carry a caller.
var untracked = map[string]bool{
	"GET /health":       true,
	"GET /health/ready": true,
	"GET /metrics":      true,
}

// NewHandler returns the full HTTP handler.
//
// Outer chain (every request): otelhttp -> RequestLogging -> Metrics -> RequestTelemetry -> mux.
// Per-route chain: ClientIP for public auth routes; ClientIP -> Authenticate -> RecordActivity for the rest.
// The outer middlewares hand the mux the request they received so they can read its matched pattern.
func NewHandler(d Deps) http.Handler {
	mux := http.NewServeMux()
	clientIP := middleware.ClientIP(d.TrustedProxies)
	public := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, clientIP)
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, clientIP, d.Authenticator.Middleware, middleware.RecordActivity(d.Recorder))
	}

	if d.Auth != nil {
		mux.Handle("POST /auth/register", public(d.Auth.Register))
		mux.Handle("POST /auth/login", public(d.Auth.Login))
		mux.Handle("POST /auth/refresh-token", public(d.Auth.RefreshToken))
		mux.Handle("POST /auth/revoke-token", public(d.Auth.RevokeToken))
		mux.Handle("POST /auth/forgot-password", public(d.Auth.ForgotPassword))
		mux.Handle("POST /auth/reset-password", public(d.Auth.ResetPassword))
		mux.Handle("POST /auth/accept-invite", public(d.Auth.AcceptInvite))

		mux.Handle("PUT /users/me/password", protected(d.Auth.ChangePassword))
		mux.Handle("GET /users/me/sessions", protected(d.Auth.ListSessions))
		mux.Handle("DELETE /users/me/sessions/{sessionId}", protected(d.Auth.RevokeSession))
		mux.Handle("POST /users/me/logout-all", protected(d.Auth.LogoutAll))
	}
	if d.Users != nil {
		mux.Handle("GET /users/me", protected(d.Users.Me))
		mux.Handle("PUT /users/me", protected(d.Users.UpdateMe))
		mux.Handle("GET /users/me/activity", protected(d.Users.MyActivity))
		mux.Handle("GET /users", protected(d.Users.List))
		mux.Handle("GET /users/{userId}", protected(d.Users.Get))
	}
	if d.Team != nil {
		mux.Handle("GET /team", protected(d.Team.List))
		mux.Handle("POST /team/invite", protected(d.Team.Invite))
		mux.Handle("GET /team/{memberId}", protected(d.Team.Get))
		mux.Handle("PUT /team/{memberId}", protected(d.Team.Update))
		mux.Handle("DELETE /team/{memberId}", protected(d.Team.Remove))
	}
	if d.Settings != nil {
		mux.Handle("GET /settings/company", protected(d.Settings.GetCompany))
		mux.Handle("PUT /settings/company", protected(d.Settings.UpdateCompany))
		mux.Handle("GET /settings/interview-preferences", protected(d.Settings.GetInterviewPreferences))
		mux.Handle("PUT /settings/interview-preferences", protected(d.Settings.UpdateInterviewPreferences))
		mux.Handle("GET /settings/notification-preferences", protected(d.Settings.GetNotificationPreferences))
		mux.Handle("PUT /settings/notification-preferences", protected(d.Settings.UpdateNotificationPreferences))
	}
	if d.Activity != nil {
		mux.Handle("GET /activities", protected(d.Activity.List))
	}
	if d.Health != nil {
		mux.HandleFunc("GET /health", d.Health.Live)
		mux.HandleFunc("GET /health/ready", d.Health.Ready)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "Route not found")
	})

	var metrics func(http.Handler) http.Handler
	if d.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
		metrics = middleware.NewMetrics(d.Registry).Middleware
	} else {
		metrics = func(h http.Handler) http.Handler { return h }
	}

	h := middleware.Chain(mux,
		middleware.RequestLogging(d.Logger, d.TrustedProxies),
		metrics,
		middleware.RequestTelemetry(d.Events, d.TrustedProxies, untracked),
	)
	return otelhttp.NewHandler(h, "vyre-ats",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" && r.URL.Path != "/metrics" }),
	)
}

// NewHTTPServer returns an http.Server with conservative timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
