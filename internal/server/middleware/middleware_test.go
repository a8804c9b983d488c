package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vyre/backend/internal/activity"
	activitydomain "vyre/backend/internal/activity/domain"
)

func TestResolveClientIP(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "10.0.0.9", resolveClientIP(req, nil))
	assert.Equal(t, "203.0.113.7", resolveClientIP(req, proxies))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", resolveClientIP(req, proxies))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", resolveClientIP(req, proxies))
}

func TestResolveClientIP_IgnoresSpoofedHops(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8, 203.0.113.7")
	assert.Equal(t, "203.0.113.7", resolveClientIP(req, proxies))

	req.Header.Set("X-Forwarded-For", "9.9.9.9")
	req.Header.Add("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", resolveClientIP(req, proxies))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, garbage, 203.0.113.7")
	assert.Equal(t, "203.0.113.7", resolveClientIP(req, proxies))

	direct := httptest.NewRequest(http.MethodGet, "/", nil)
	direct.RemoteAddr = "198.51.100.9:4000"
	direct.Header.Set("X-Forwarded-For", "1.2.3.4")
	direct.Header.Set("X-Real-IP", "5.6.7.8")
	assert.Equal(t, "198.51.100.9", resolveClientIP(direct, proxies))
}

func TestClientIP_SetsContext(t *testing.T) {
	var got string
	h := ClientIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "192.0.2.1", got)
	assert.Equal(t, "", ClientIPFrom(context.Background()))
}

func TestRequestLogging_LogsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /team/{memberId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := RequestLogging(log, nil)(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/team/42", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `route="GET /team/{memberId}"`)
	assert.Contains(t, out, "status=202")
	assert.Contains(t, out, "path=/team/42")
}

func TestRequestLogging_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestLogging(log, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
	assert.Contains(t, buf.String(), "http.panic")
	assert.Contains(t, buf.String(), "status=500")
}

func TestMetrics_CountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {})
	h := m.Middleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "GET /health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

type captureRecorder struct {
	entries []activity.Entry
}

func (c *captureRecorder) Record(_ context.Context, e activity.Entry) {
	c.entries = append(c.entries, e)
}

func activityMux(rec activity.Recorder, status int) http.Handler {
	mux := http.NewServeMux()
	withSummary := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := &Summary{UserID: "u1", CompanyID: "c1"}
			next.ServeHTTP(w, r.WithContext(WithSummary(r.Context(), s)))
		})
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(status) })
	for _, p := range []string{"PUT /team/{memberId}", "PUT /users/me", "PUT /settings/company", "GET /team"} {
		mux.Handle(p, Chain(h, withSummary, RecordActivity(rec)))
	}
	return mux
}

func TestRecordActivity(t *testing.T) {
	cases := []struct {
		path       string
		method     string
		entityType activitydomain.EntityType
		entityID   string
	}{
		{"/team/m9", http.MethodPut, activitydomain.EntityUser, "m9"},
		{"/users/me", http.MethodPut, activitydomain.EntityUser, "u1"},
		{"/settings/company", http.MethodPut, activitydomain.EntityCompany, "c1"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := &captureRecorder{}
			activityMux(rec, http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
			require.Len(t, rec.entries, 1)
			e := rec.entries[0]
			assert.Equal(t, "c1", e.CompanyID)
			assert.Equal(t, "u1", e.UserID)
			assert.Equal(t, activitydomain.ActionUpdated, e.Action)
			assert.Equal(t, tc.entityType, e.EntityType)
			assert.Equal(t, tc.entityID, e.EntityID)
		})
	}
}

func TestRecordActivity_SkipsFailuresAndReads(t *testing.T) {
	rec := &captureRecorder{}
	activityMux(rec, http.StatusBadRequest).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/users/me", nil))
	activityMux(rec, http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/team", nil))
	assert.Empty(t, rec.entries)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
