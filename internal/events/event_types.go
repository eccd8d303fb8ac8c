package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/order-tagger/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAutoLoginSucceeded EventType = "autologin.succeeded"
	EventAutoLoginRejected  EventType = "autologin.rejected"
	EventAutoLoginSkipped   EventType = "autologin.skipped"
	EventPasswordLogin      EventType = "session.password_login"
	EventPasswordRejected   EventType = "session.password_rejected"
	EventLogout             EventType = "session.logout"
)

// Actor encapsulates the account an event concerns, when known.
type Actor struct {
	UserID   *int64             `json:"user_id,omitempty"`
	Username string             `json:"username,omitempty"`
	Method   domain.LoginMethod `json:"method,omitempty"`
}

// Event represents an authentication audit event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh ID and time.
func NewEvent(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// AutoLoginSucceededPayload payload.
type AutoLoginSucceededPayload struct {
	IssuerTag string `json:"issuer_tag"`
	TokenRef  string `json:"token_ref"`
}

// AutoLoginRejectedPayload payload. Reason is the internal failure kind and
// never leaves the server.
type AutoLoginRejectedPayload struct {
	Code     string `json:"code"`
	Reason   string `json:"reason"`
	State    string `json:"state"`
	TokenRef string `json:"token_ref,omitempty"`
}

// AutoLoginSkippedPayload payload.
type AutoLoginSkippedPayload struct {
	SessionUserID int64 `json:"session_user_id"`
}

// PasswordRejectedPayload payload.
type PasswordRejectedPayload struct {
	Username string `json:"username"`
}
