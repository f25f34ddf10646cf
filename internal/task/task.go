package task

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/crawl-api/internal/domain"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Status messages stored on the record for each state.
const (
	MessagePending   = "task created, waiting to run"
	MessageRunning   = "running"
	MessageCompleted = "crawl completed"
	MessageFailed    = "crawl failed"
	MessageStopped   = "stop requested; the crawler may finish its current operation first"
)

// Errors returned by the registry and the executor
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskExists        = errors.New("task already exists")
	ErrTerminalState     = errors.New("task is already in a terminal state")
	ErrInvalidTransition = errors.New("invalid task transition")
	ErrExecutorClosed    = errors.New("executor is shut down")
)

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusRunning: {},
	},
	StatusRunning: {
		StatusCompleted: {},
		StatusFailed:    {},
		StatusStopped:   {},
	},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusStopped:   {},
}

// ValidateTransition returns nil when from -> to is an edge of the state
// machine. Leaving a terminal state yields ErrTerminalState.
func ValidateTransition(from, to Status) error {
	edges, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrTerminalState, from, to)
	}
	if _, ok := edges[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Record is the observable state of one task. Records are values: the
// registry hands out copies and stores a new value on every transition.
type Record struct {
	ID          uuid.UUID          `json:"id"`
	Status      Status             `json:"status"`
	Config      domain.CrawlConfig `json:"config"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at"`
	Message     string             `json:"message"`
	Error       string             `json:"error,omitempty"`
	OutputFiles []string           `json:"output_files,omitempty"`
}

func newRecord(id uuid.UUID, cfg domain.CrawlConfig, at time.Time) Record {
	return Record{
		ID:        id,
		Status:    StatusPending,
		Config:    cfg,
		CreatedAt: at,
		Message:   MessagePending,
	}
}

// clone returns a copy that shares no mutable memory with r.
func (r Record) clone() Record {
	r.OutputFiles = slices.Clone(r.OutputFiles)
	return r
}

// transition returns r moved to status to at time at. Start and completion
// timestamps are only ever assigned here, each on its single edge.
func (r Record) transition(to Status, at time.Time) (Record, error) {
	if err := ValidateTransition(r.Status, to); err != nil {
		return r, err
	}

	r.Status = to
	switch {
	case to == StatusRunning:
		r.StartedAt = &at
		r.Message = MessageRunning
	case to.IsTerminal():
		r.CompletedAt = &at
	}
	return r, nil
}
