package task

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/crawl-api/internal/domain"
)

// Registry is the process-wide store of task records. It is safe for
// concurrent use. Every mutation swaps in a complete new Record under the
// write lock; no caller ever holds a reference into the stored value.
type Registry struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]Record
	order []uuid.UUID
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[uuid.UUID]Record),
	}
}

// Create stores a new pending record for id.
func (r *Registry) Create(id uuid.UUID, cfg domain.CrawlConfig, at time.Time) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[id]; exists {
		return Record{}, fmt.Errorf("%w: %s", ErrTaskExists, id)
	}

	rec := newRecord(id, cfg, at)
	r.tasks[id] = rec
	r.order = append(r.order, id)
	return rec.clone(), nil
}

// Get returns a snapshot of the record for id.
func (r *Registry) Get(id uuid.UUID) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.tasks[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return rec.clone(), nil
}

// List returns snapshots of all records, most recently created first.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, id := range slices.Backward(r.order) {
		out = append(out, r.tasks[id].clone())
	}
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// MarkRunning moves a pending task to running and stamps its start time.
func (r *Registry) MarkRunning(id uuid.UUID, at time.Time) (Record, error) {
	return r.update(id, func(rec Record) (Record, error) {
		return rec.transition(StatusRunning, at)
	})
}

// Complete moves a running task to completed and attaches its output files.
func (r *Registry) Complete(id uuid.UUID, at time.Time, files []string) (Record, error) {
	return r.update(id, func(rec Record) (Record, error) {
		next, err := rec.transition(StatusCompleted, at)
		if err != nil {
			return rec, err
		}
		next.Message = MessageCompleted
		next.OutputFiles = append([]string{}, files...)
		return next, nil
	})
}

// Fail moves a task to failed, keeping cause's text verbatim.
func (r *Registry) Fail(id uuid.UUID, at time.Time, cause error) (Record, error) {
	return r.update(id, func(rec Record) (Record, error) {
		next, err := rec.transition(StatusFailed, at)
		if err != nil {
			return rec, err
		}
		next.Message = MessageFailed
		if cause != nil {
			next.Error = cause.Error()
		}
		return next, nil
	})
}

// Stop marks a running task stopped. It reports false without touching the
// record when the task is not running.
func (r *Registry) Stop(id uuid.UUID, at time.Time) (Record, bool, error) {
	accepted := false
	rec, err := r.update(id, func(rec Record) (Record, error) {
		if rec.Status != StatusRunning {
			return rec, nil
		}
		next, err := rec.transition(StatusStopped, at)
		if err != nil {
			return rec, err
		}
		next.Message = MessageStopped
		accepted = true
		return next, nil
	})
	return rec, accepted, err
}

// update applies fn to the stored record for id and stores its result. When
// fn fails, the stored record is left as it was.
func (r *Registry) update(id uuid.UUID, fn func(Record) (Record, error)) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tasks[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	next, err := fn(rec)
	if err != nil {
		return rec.clone(), err
	}

	r.tasks[id] = next
	return next.clone(), nil
}
