package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskEvent records one status transition of a task. Statuses are plain
// strings so this package stays independent of the task package.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task that changed
	TaskID uuid.UUID `json:"task_id"`

	// From is the previous status, empty for the creation event
	From string `json:"from,omitempty"`

	// To is the new status
	To string `json:"to"`

	// Message is the record's status message after the transition
	Message string `json:"message"`

	// Error is the failure description for failed transitions
	Error string `json:"error,omitempty"`

	// OccurredAt is when the transition was applied
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent creates a TaskEvent with a fresh ID.
func NewTaskEvent(taskID uuid.UUID, from, to, message string, at time.Time) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		TaskID:     taskID,
		From:       from,
		To:         to,
		Message:    message,
		OccurredAt: at,
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}
