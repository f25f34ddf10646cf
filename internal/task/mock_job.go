package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/crawl-api/internal/domain"
)

// MockJob is a Job and Closer for testing. Nil function fields succeed.
type MockJob struct {
	StartFn func(ctx context.Context) error
	CloseFn func(ctx context.Context) error

	started atomic.Bool
	closed  atomic.Bool
}

// Start calls StartFn.
func (j *MockJob) Start(ctx context.Context) error {
	j.started.Store(true)
	if j.StartFn == nil {
		return nil
	}
	return j.StartFn(ctx)
}

// Close calls CloseFn.
func (j *MockJob) Close(ctx context.Context) error {
	j.closed.Store(true)
	if j.CloseFn == nil {
		return nil
	}
	return j.CloseFn(ctx)
}

// Started reports whether Start was called.
func (j *MockJob) Started() bool { return j.started.Load() }

// Closed reports whether Close was called.
func (j *MockJob) Closed() bool { return j.closed.Load() }

// MockStore is a Store for testing.
type MockStore struct {
	CloseFn func() error

	closed atomic.Bool
}

// Close calls CloseFn.
func (s *MockStore) Close() error {
	s.closed.Store(true)
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Closed reports whether Close was called.
func (s *MockStore) Closed() bool { return s.closed.Load() }

// MockJobFactory hands out a job per call and remembers what it was given.
type MockJobFactory struct {
	NewJobFn func(cfg domain.CrawlConfig, store Store) (Job, error)

	mu     sync.Mutex
	stores []Store
}

// NewJob calls NewJobFn, defaulting to a MockJob that succeeds at once.
func (f *MockJobFactory) NewJob(cfg domain.CrawlConfig, store Store) (Job, error) {
	f.mu.Lock()
	f.stores = append(f.stores, store)
	f.mu.Unlock()

	if f.NewJobFn == nil {
		return &MockJob{}, nil
	}
	return f.NewJobFn(cfg, store)
}

// Stores returns the store passed to each NewJob call.
func (f *MockJobFactory) Stores() []Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Store(nil), f.stores...)
}

// MockCorrelator is a Correlator for testing.
type MockCorrelator struct {
	CorrelateFn func(platform string, since time.Time) ([]string, error)
}

// Correlate calls CorrelateFn; nil returns no files.
func (c *MockCorrelator) Correlate(platform string, since time.Time) ([]string, error) {
	if c.CorrelateFn == nil {
		return nil, nil
	}
	return c.CorrelateFn(platform, since)
}
