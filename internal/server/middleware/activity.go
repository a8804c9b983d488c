package middleware

import (
	"net/http"

	"vyre/backend/internal/activity"
	activitydomain "vyre/backend/internal/activity/domain"
)

// RecordActivity writes an activity entry after a successful (2xx) mutating request whose route
// pattern is known to activity.LookupRoute. It must run after Authenticator.Middleware.
func RecordActivity(rec activity.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := newStatusRecorder(w)
			next.ServeHTTP(sr, r)
			if sr.status < 200 || sr.status >= 300 {
				return
			}
			route, ok := activity.LookupRoute(r.Pattern)
			if !ok {
				return
			}
			s, ok := SummaryFrom(r.Context())
			if !ok {
				return
			}
			entityID := ""
			if route.IDParam != "" {
				entityID = r.PathValue(route.IDParam)
			} else if route.EntityType == activitydomain.EntityUser {
				entityID = s.UserID
			} else {
				entityID = s.CompanyID
			}
			rec.Record(r.Context(), activity.Entry{
				CompanyID:   s.CompanyID,
				UserID:      s.UserID,
				Action:      route.Action,
				EntityType:  route.EntityType,
				EntityID:    entityID,
				Description: route.Description,
				Details:     map[string]any{"method": r.Method, "path": r.URL.Path},
			})
		})
	}
}

// Chain applies middlewares so that the first one listed is outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
