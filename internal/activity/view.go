package activity

import (
	"encoding/json"
	"time"

	"vyre/backend/internal/activity/domain"
)

// View is the JSON shape of an activity in API responses.
type View struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId,omitempty"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entityType"`
	EntityID    string          `json:"entityId,omitempty"`
	Description string          `json:"description"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Views converts activities for a response. It never returns nil.
func Views(list []*domain.Activity) []View {
	out := make([]View, 0, len(list))
	for _, a := range list {
		out = append(out, View{
			ID:          a.ID,
			UserID:      a.UserID,
			Action:      string(a.Action),
			EntityType:  string(a.EntityType),
			EntityID:    a.EntityID,
			Description: a.Description,
			Details:     json.RawMessage(a.Details),
			CreatedAt:   a.CreatedAt,
		})
	}
	return out
}
