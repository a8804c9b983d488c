package telemetry

import (
	"encoding/json"
	"time"
)

// Auth event types.
const (
	EventLoginSuccess    = "login_success"
	EventLoginFailure    = "login_failure"
	EventLoginThrottled  = "login_throttled"
	EventRegister        = "register"
	EventRefresh         = "refresh"
	EventRevoke          = "revoke"
	EventLogoutAll       = "logout_all"
	EventPasswordChanged = "password_changed"
	EventPasswordReset   = "password_reset"
	EventInviteAccepted  = "invite_accepted"
)

// EventHTTPRequest is emitted once per served API request.
const EventHTTPRequest = "http_request"

// Event sources.
const (
	SourceAuth = "auth"
	SourceHTTP = "http_middleware"
)

// Event is a security-relevant occurrence shipped to OTel logs and Kafka.
// It never carries passwords or raw tokens.
type Event struct {
	EventType string         `json:"eventType"`
	Source    string         `json:"source"`
	CompanyID string         `json:"companyId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MetadataJSON returns Metadata encoded as JSON, or nil when empty or unencodable.
func (e *Event) MetadataJSON() []byte {
	if e == nil || len(e.Metadata) == 0 {
		return nil
	}
	b, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil
	}
	return b
}
