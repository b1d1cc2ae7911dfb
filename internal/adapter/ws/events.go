package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventTaskStatus     = "task.status"
	EventTaskCreated    = "task.created"
	EventFindingCreated = "finding.created"
)

// TaskStatusEvent is broadcast when a task's status changes.
type TaskStatusEvent struct {
	TaskID     string `json:"task_id"`
	PluginID   string `json:"plugin_id"`
	Status     string `json:"status"`
	TestStatus string `json:"test_status,omitempty"`
	Version    int    `json:"version"`
}

// TaskCreatedEvent is broadcast when a new task is accepted.
type TaskCreatedEvent struct {
	TaskID   string `json:"task_id"`
	PluginID string `json:"plugin_id"`
	OwnerID  string `json:"owner_id"`
}

// FindingCreatedEvent is broadcast when a research task produces findings.
type FindingCreatedEvent struct {
	TaskID   string `json:"task_id"`
	PersonID string `json:"person_id"`
	Count    int    `json:"count"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
