package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is the number of events History keeps per task.
const DefaultHistoryLimit = 32

// History is an EventHandler that remembers the most recent events of each
// task. Like the task registry it never forgets a task.
type History struct {
	mu     sync.RWMutex
	limit  int
	byTask map[uuid.UUID][]TaskEvent
}

// NewHistory creates a History keeping up to limit events per task. A
// non-positive limit selects DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit:  limit,
		byTask: make(map[uuid.UUID][]TaskEvent),
	}
}

// HandleEvent appends event to its task's history, dropping the oldest
// entry once the limit is reached.
func (h *History) HandleEvent(_ context.Context, event *TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.byTask[event.TaskID], *event)
	if len(list) > h.limit {
		list = list[len(list)-h.limit:]
	}
	h.byTask[event.TaskID] = list
	return nil
}

// Events returns a copy of the recorded events for taskID, oldest first.
func (h *History) Events(taskID uuid.UUID) []TaskEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.byTask[taskID]
	out := make([]TaskEvent, len(list))
	copy(out, list)
	return out
}

// Ensure History implements EventHandler
var _ EventHandler = (*History)(nil)
