// Package messagequeue defines the event bus port for task lifecycle events.
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Close shuts down the queue connection.
	Close() error
}

// Subjects for task lifecycle events. Status transitions are published as
// tasks.status.<status> so consumers can filter on the phases they care about.
const (
	SubjectTaskCreated      = "tasks.created"
	SubjectTaskStatusPrefix = "tasks.status."
)

// StatusSubject returns the subject for a transition into the given status.
func StatusSubject(status string) string {
	return SubjectTaskStatusPrefix + status
}
