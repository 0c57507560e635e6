package service

import (
	"context"

	"accounts/internal/domain/entity"
)

// Notifier sends account lifecycle messages to the account owner.
// Calls are fire-and-forget: they never block on delivery and report no error.
type Notifier interface {
	SendWelcome(ctx context.Context, email, username string)
	SendCancelation(ctx context.Context, email, username string)
	SendPasswordReset(ctx context.Context, email, username, password string)
}

// EventPublisher defines the interface for publishing account events to a message transport
type EventPublisher interface {
	// Publish delivers one account event
	Publish(ctx context.Context, event *entity.AccountEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
