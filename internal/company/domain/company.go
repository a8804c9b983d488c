package domain

import (
	"errors"
	"strings"
	"time"
)

// Size is a company headcount bucket.
type Size string

// Sizes lists the accepted headcount buckets.
var Sizes = []Size{"1-10", "11-50", "51-200", "201-500", "501-1000", "1001-5000", "5000+"}

// Valid reports whether s is empty or one of Sizes.
func (s Size) Valid() bool {
	if s == "" {
		return true
	}
	for _, v := range Sizes {
		if s == v {
			return true
		}
	}
	return false
}

// InterviewPreferences are company-wide defaults for new interviews.
type InterviewPreferences struct {
	DefaultDuration int // minutes
	DefaultLocation string
}

// NotificationPreferences toggle company-wide email notifications.
type NotificationPreferences struct {
	NewApplicant       bool
	InterviewScheduled bool
	InterviewCompleted bool
}

// Company is the tenant every user, activity and setting is scoped to.
type Company struct {
	ID                      string
	Name                    string
	Description             string
	Logo                    string
	Website                 string
	Industry                string
	Size                    Size
	Location                string
	InterviewPreferences    InterviewPreferences
	NotificationPreferences NotificationPreferences
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

var (
	ErrNameRequired    = errors.New("company name is required")
	ErrSizeInvalid     = errors.New("company size is invalid")
	ErrDurationInvalid = errors.New("default interview duration must be a positive number of minutes")
)

// New returns a company with default settings.
func New(id, name string, now time.Time) *Company {
	return &Company{
		ID:   id,
		Name: strings.TrimSpace(name),
		InterviewPreferences: InterviewPreferences{
			DefaultDuration: 60,
			DefaultLocation: "Virtual",
		},
		NotificationPreferences: NotificationPreferences{
			NewApplicant:       true,
			InterviewScheduled: true,
			InterviewCompleted: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate validates the company for persistence. Returns the first validation failure.
func (c *Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if !c.Size.Valid() {
		return ErrSizeInvalid
	}
	if c.InterviewPreferences.DefaultDuration <= 0 {
		return ErrDurationInvalid
	}
	return nil
}
