// Package activity records the per-company activity feed.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vyre/backend/internal/activity/domain"
	activityrepo "vyre/backend/internal/activity/repository"
)

// Entry is one activity to record.
type Entry struct {
	CompanyID   string
	UserID      string
	Action      domain.Action
	EntityType  domain.EntityType
	EntityID    string
	Description string
	Details     map[string]any
}

// Recorder writes activity entries. Record is best-effort: failures are logged and do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Logger implements Recorder using the activity repository.
type Logger struct {
	repo activityrepo.Repository
	now  func() time.Time
}

// NewLogger returns a Recorder that persists to repo. A nil repo makes Record a no-op.
func NewLogger(repo activityrepo.Repository) *Logger {
	return &Logger{repo: repo, now: time.Now}
}

// Record writes one activity entry. Entries without a company are dropped; every activity is tenant scoped.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil || l.repo == nil {
		return
	}
	if e.CompanyID == "" {
		slog.WarnContext(ctx, "activity: dropping entry without company", "action", e.Action, "entity_type", e.EntityType)
		return
	}
	if e.Action == "" {
		e.Action = domain.ActionOther
	}
	a := &domain.Activity{
		ID:          uuid.New().String(),
		CompanyID:   e.CompanyID,
		UserID:      e.UserID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
		CreatedAt:   l.now().UTC(),
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			slog.WarnContext(ctx, "activity: encode details", "error", err)
		} else {
			a.Details = b
		}
	}
	if err := l.repo.Create(ctx, a); err != nil {
		slog.WarnContext(ctx, "activity: failed to record", "action", a.Action, "entity_type", a.EntityType, "error", err)
	}
}
