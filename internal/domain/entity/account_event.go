package entity

import (
	"time"

	"github.com/google/uuid"
)

// AccountEventType names a notification-worthy account lifecycle change.
type AccountEventType string

const (
	AccountEventWelcome       AccountEventType = "account.welcome"
	AccountEventCancelation   AccountEventType = "account.cancelation"
	AccountEventPasswordReset AccountEventType = "account.password_reset"
)

// AccountEvent is the payload handed to the outbound notifier.
// Password is only set for password reset events and must never be logged.
type AccountEvent struct {
	EventID    uuid.UUID        `json:"event_id"`
	RequestID  string           `json:"request_id,omitempty"` // For distributed tracing
	Type       AccountEventType `json:"type"`
	Email      string           `json:"email"`
	Username   string           `json:"username"`
	Password   string           `json:"password,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
