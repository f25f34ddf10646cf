package task

import (
	"context"
	"time"

	"github.com/phrazzld/crawl-api/internal/domain"
)

// Job is one run of the external crawler.
type Job interface {
	// Start runs the crawl to completion and blocks until it ends. ctx is
	// cancelled when a stop is requested; honouring it is up to the job.
	Start(ctx context.Context) error
}

// Closer is implemented by jobs that hold resources (browser sessions,
// connections, child processes) which must be released after Start returns.
type Closer interface {
	Close(ctx context.Context) error
}

// Store is an opened stateful persistence target.
type Store interface {
	Close() error
}

// JobFactory builds the job for a configuration. store is nil unless the
// configuration asked for a stateful persistence target.
type JobFactory interface {
	NewJob(cfg domain.CrawlConfig, store Store) (Job, error)
}

// JobFactoryFunc adapts a function to JobFactory.
type JobFactoryFunc func(cfg domain.CrawlConfig, store Store) (Job, error)

// NewJob calls f.
func (f JobFactoryFunc) NewJob(cfg domain.CrawlConfig, store Store) (Job, error) {
	return f(cfg, store)
}

// StoreOpener opens the persistence target named by a save option.
type StoreOpener interface {
	Open(ctx context.Context, option domain.SaveDataOption) (Store, error)
}

// StoreOpenerFunc adapts a function to StoreOpener.
type StoreOpenerFunc func(ctx context.Context, option domain.SaveDataOption) (Store, error)

// Open calls f.
func (f StoreOpenerFunc) Open(ctx context.Context, option domain.SaveDataOption) (Store, error) {
	return f(ctx, option)
}

// Correlator attributes output files to a finished task.
type Correlator interface {
	Correlate(platform string, since time.Time) ([]string, error)
}
