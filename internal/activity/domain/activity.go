package domain

import "time"

// Action is what happened to an entity.
type Action string

const (
	ActionCreated      Action = "created"
	ActionUpdated      Action = "updated"
	ActionDeleted      Action = "deleted"
	ActionViewed       Action = "viewed"
	ActionStatusChange Action = "status_change"
	ActionOther        Action = "other"
)

// EntityType is the kind of thing an activity refers to.
type EntityType string

const (
	EntityJob       EntityType = "job"
	EntityCandidate EntityType = "candidate"
	EntityInterview EntityType = "interview"
	EntityReport    EntityType = "report"
	EntityUser      EntityType = "user"
	EntityCompany   EntityType = "company"
	EntitySettings  EntityType = "settings"
)

// Activity is one entry of a company's activity feed.
type Activity struct {
	ID          string
	CompanyID   string
	UserID      string
	Action      Action
	EntityType  EntityType
	EntityID    string
	Description string
	// Details is a JSON object; empty when there is nothing extra to record.
	Details   []byte
	CreatedAt time.Time
}
