// Package notifier defines the notification port (interface) and registry.
// Notifications are fire-and-forget: a failing notifier never affects task state.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Notification is the payload sent through a Notifier.
type Notification struct {
	TaskID  string `json:"task_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`  // "info", "success", "warning", "error"
	Source  string `json:"source"` // e.g. "task.awaiting_review", "task.error"
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "slack", "email").
	Name() string

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
