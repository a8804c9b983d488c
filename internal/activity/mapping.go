package activity

import (
	"net/http"
	"strings"

	"vyre/backend/internal/activity/domain"
)

// Route describes how a mutating route is recorded in the activity feed.
type Route struct {
	Action      domain.Action
	EntityType  domain.EntityType
	Description string
	// IDParam names the path wildcard holding the entity id. Empty means the entity is the
	// caller (user entities) or the caller's company (company and settings entities).
	IDParam string
}

// routes maps ServeMux patterns to activity descriptions.
var routes = map[string]Route{
	"PUT /users/me":                          {domain.ActionUpdated, domain.EntityUser, "Updated profile information", ""},
	"PUT /users/me/password":                 {domain.ActionUpdated, domain.EntityUser, "Changed password", ""},
	"DELETE /users/me/sessions/{sessionId}":  {domain.ActionDeleted, domain.EntityUser, "Signed out a device", ""},
	"POST /users/me/logout-all":              {domain.ActionOther, domain.EntityUser, "Signed out of all devices", ""},
	"POST /team/invite":                      {domain.ActionCreated, domain.EntityUser, "Invited a team member", ""},
	"PUT /team/{memberId}":                   {domain.ActionUpdated, domain.EntityUser, "Updated a team member", "memberId"},
	"DELETE /team/{memberId}":                {domain.ActionDeleted, domain.EntityUser, "Removed a team member", "memberId"},
	"PUT /settings/company":                  {domain.ActionUpdated, domain.EntityCompany, "Updated company settings", ""},
	"PUT /settings/interview-preferences":    {domain.ActionUpdated, domain.EntitySettings, "Updated interview preferences", ""},
	"PUT /settings/notification-preferences": {domain.ActionUpdated, domain.EntitySettings, "Updated notification preferences", ""},
}

// LookupRoute returns how the route registered under pattern (e.g. "PUT /team/{memberId}") is recorded.
// Known patterns use the table above; other mutating patterns are derived from method and first path segment.
// Reads and unknown resources report ok=false.
func LookupRoute(pattern string) (Route, bool) {
	if r, ok := routes[pattern]; ok {
		return r, true
	}
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		return Route{}, false
	}
	action, ok := methodToAction(method)
	if !ok {
		return Route{}, false
	}
	entity, ok := segmentToEntity(path)
	if !ok {
		return Route{}, false
	}
	return Route{Action: action, EntityType: entity, Description: string(action) + " " + string(entity)}, true
}

func methodToAction(method string) (domain.Action, bool) {
	switch method {
	case http.MethodPost:
		return domain.ActionCreated, true
	case http.MethodPut, http.MethodPatch:
		return domain.ActionUpdated, true
	case http.MethodDelete:
		return domain.ActionDeleted, true
	}
	return "", false
}

func segmentToEntity(path string) (domain.EntityType, bool) {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	switch seg {
	case "users", "team":
		return domain.EntityUser, true
	case "settings":
		return domain.EntitySettings, true
	case "company", "companies":
		return domain.EntityCompany, true
	}
	return "", false
}
