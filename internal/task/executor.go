package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/events"
	"github.com/phrazzld/crawl-api/internal/redact"
)

// DefaultCleanupTimeout bounds the time spent releasing one task's resources.
const DefaultCleanupTimeout = 30 * time.Second

// ErrNotStarted is recorded on tasks that were still pending when the
// executor shut down.
var ErrNotStarted = errors.New("executor shut down before the task started")

// activeTask is the executor's handle on a task whose resources have not
// been released yet.
type activeTask struct {
	cancel context.CancelFunc

	// mu orders each record transition with the event published for it
	mu sync.Mutex
}

// Executor runs each submitted task on its own goroutine against the
// external crawler and records every outcome in the Registry.
type Executor struct {
	registry   *Registry
	jobs       JobFactory
	stores     StoreOpener
	correlator Correlator
	emitter    events.EventEmitter
	logger     *slog.Logger

	// ctx is the parent of every task context; cancel fires on Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// wg tracks task goroutines for Shutdown
	wg sync.WaitGroup

	mu     sync.Mutex
	active map[uuid.UUID]*activeTask
	closed bool

	cleanupTimeout time.Duration

	// seams replaced by tests
	now   func() time.Time
	newID func() uuid.UUID
	spawn func(func())
}

// NewExecutor creates an Executor. stores may be nil when no stateful
// persistence target is configured; correlator may be nil, in which case
// completed tasks carry no output files.
func NewExecutor(
	registry *Registry,
	jobs JobFactory,
	stores StoreOpener,
	correlator Correlator,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Executor{
		registry:       registry,
		jobs:           jobs,
		stores:         stores,
		correlator:     correlator,
		logger:         logger.With("component", "task_executor"),
		ctx:            ctx,
		cancel:         cancel,
		active:         make(map[uuid.UUID]*activeTask),
		cleanupTimeout: DefaultCleanupTimeout,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.New,
		spawn:          func(fn func()) { go fn() },
	}
}

// SetEmitter sets the emitter that receives every status transition.
// It must be called before the first Submit.
func (e *Executor) SetEmitter(emitter events.EventEmitter) {
	e.emitter = emitter
}

// Submit validates cfg, stores a pending record and starts the task in the
// background. It never waits for the crawl itself.
func (e *Executor) Submit(cfg domain.CrawlConfig) (Record, error) {
	if err := cfg.Validate(); err != nil {
		return Record{}, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Record{}, ErrExecutorClosed
	}

	rec, err := e.registry.Create(e.newID(), cfg, e.now())
	if err != nil {
		e.mu.Unlock()
		return Record{}, fmt.Errorf("failed to create task: %w", err)
	}

	ctx, cancel := context.WithCancel(e.ctx)
	task := &activeTask{cancel: cancel}
	e.active[rec.ID] = task
	e.wg.Add(1)
	e.mu.Unlock()

	e.logger.Info("task submitted",
		"task_id", rec.ID,
		"platform", cfg.Platform,
		"crawler_type", cfg.CrawlerType,
		"save_data_option", cfg.SaveDataOption)
	e.publish("", rec)

	e.spawn(func() {
		defer e.wg.Done()
		e.run(ctx, task, rec.ID, cfg)
	})

	return rec, nil
}

// Stop requests a running task to stop. The record becomes stopped at once
// and the task context is cancelled; the crawler itself may keep running
// until it returns. accepted is false, with no change made, when the task is
// not running.
func (e *Executor) Stop(id uuid.UUID) (rec Record, accepted bool, err error) {
	e.mu.Lock()
	task := e.active[id]
	e.mu.Unlock()

	// released tasks are terminal; the registry rejects the stop for them
	if task == nil {
		return e.registry.Stop(id, e.now())
	}

	task.mu.Lock()
	rec, accepted, err = e.registry.Stop(id, e.now())
	if err == nil && accepted {
		e.publish(StatusRunning, rec)
	}
	task.mu.Unlock()

	if err != nil || !accepted {
		return rec, accepted, err
	}

	task.cancel()
	e.logger.Info("task stop requested", "task_id", id)
	return rec, true, nil
}

// Get returns a snapshot of one task.
func (e *Executor) Get(id uuid.UUID) (Record, error) {
	return e.registry.Get(id)
}

// List returns snapshots of all tasks, newest first.
func (e *Executor) List() []Record {
	return e.registry.List()
}

// Shutdown refuses further submissions, cancels every task context and waits
// for the task goroutines to return. It returns ctx.Err() if they are still
// running when ctx is done.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	active := len(e.active)
	e.mu.Unlock()

	e.logger.Info("shutting down task executor", "active_tasks", active)
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("task executor stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("task executor shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

// run drives one task from pending to a terminal state and releases its
// resources afterwards.
func (e *Executor) run(ctx context.Context, task *activeTask, id uuid.UUID, cfg domain.CrawlConfig) {
	logger := e.logger.With("task_id", id)

	var (
		job   Job
		store Store
	)
	defer e.cleanup(id, logger, &job, &store)

	rec, err := e.markRunning(task, id)
	if err != nil {
		logger.Error("failed to mark task running", "error", err)
		return
	}

	// shut down before the goroutine got to run: the task still passes
	// through running so the status order holds
	if ctx.Err() != nil {
		e.fail(task, id, logger, ErrNotStarted)
		return
	}
	logger.Info("task running")

	if err := e.execute(ctx, cfg, &job, &store); err != nil {
		e.fail(task, id, logger, err)
		return
	}

	e.complete(task, id, logger, cfg, *rec.StartedAt)
}

func (e *Executor) markRunning(task *activeTask, id uuid.UUID) (Record, error) {
	task.mu.Lock()
	defer task.mu.Unlock()

	rec, err := e.registry.MarkRunning(id, e.now())
	if err != nil {
		return rec, err
	}
	e.publish(StatusPending, rec)
	return rec, nil
}

// execute opens the store, builds the job and blocks in Start. A panic in any
// of these steps is returned as an error.
func (e *Executor) execute(ctx context.Context, cfg domain.CrawlConfig, job *Job, store *Store) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawler panicked: %v", r)
		}
	}()

	if cfg.SaveDataOption.Stateful() {
		if e.stores == nil {
			return fmt.Errorf("no store configured for save option %q", cfg.SaveDataOption)
		}
		s, err := e.stores.Open(ctx, cfg.SaveDataOption)
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", cfg.SaveDataOption, err)
		}
		*store = s
	}

	j, err := e.jobs.NewJob(cfg, *store)
	if err != nil {
		return fmt.Errorf("failed to create crawler job: %w", err)
	}
	*job = j

	return j.Start(ctx)
}

// correlate collects the output files of a finished task. Correlator errors
// degrade to no files; a panic is returned as an error.
func (e *Executor) correlate(logger *slog.Logger, platform string, since time.Time) (files []string, err error) {
	if e.correlator == nil {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			files, err = nil, fmt.Errorf("correlator panicked: %v", r)
		}
	}()

	found, cerr := e.correlator.Correlate(platform, since)
	if cerr != nil {
		logger.Warn("failed to collect output files", "error", redact.Error(cerr))
		return nil, nil
	}
	return found, nil
}

func (e *Executor) complete(task *activeTask, id uuid.UUID, logger *slog.Logger, cfg domain.CrawlConfig, since time.Time) {
	files, err := e.correlate(logger, string(cfg.Platform), since)
	if err != nil {
		e.fail(task, id, logger, err)
		return
	}

	task.mu.Lock()
	rec, err := e.registry.Complete(id, e.now(), files)
	if err == nil {
		e.publish(StatusRunning, rec)
	}
	task.mu.Unlock()

	if err != nil {
		e.logOutcomeError(logger, StatusCompleted, rec, err)
		return
	}
	logger.Info("task completed", "output_files", len(rec.OutputFiles))
}

func (e *Executor) fail(task *activeTask, id uuid.UUID, logger *slog.Logger, cause error) {
	task.mu.Lock()
	rec, err := e.registry.Fail(id, e.now(), cause)
	if err == nil {
		e.publish(StatusRunning, rec)
	}
	task.mu.Unlock()

	if err != nil {
		e.logOutcomeError(logger, StatusFailed, rec, err)
		return
	}
	logger.Error("task failed", "error", redact.Error(cause))
}

// logOutcomeError reports an outcome that could not be recorded. Outcomes
// arriving after a stop are expected and only noted.
func (e *Executor) logOutcomeError(logger *slog.Logger, outcome Status, current Record, err error) {
	if errors.Is(err, ErrTerminalState) {
		logger.Info("dropping late outcome",
			"outcome", outcome,
			"status", current.Status)
		return
	}
	logger.Error("failed to record task outcome",
		"outcome", outcome,
		"error", err)
}

// cleanup releases the task's resources in order: job, store, context.
// Failures are logged only.
func (e *Executor) cleanup(id uuid.UUID, logger *slog.Logger, job *Job, store *Store) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), e.cleanupTimeout)
	defer cancel()

	if closer, ok := (*job).(Closer); ok {
		if err := closer.Close(ctx); err != nil {
			logger.Warn("failed to close crawler job", "error", redact.Error(err))
		}
	}

	if *store != nil {
		if err := (*store).Close(); err != nil {
			logger.Warn("failed to close store", "error", redact.Error(err))
		}
	}

	e.mu.Lock()
	if task, ok := e.active[id]; ok {
		task.cancel()
		delete(e.active, id)
	}
	e.mu.Unlock()

	logger.Debug("task resources released")
}

// publish emits the transition that produced rec. Emitter failures are
// logged only.
func (e *Executor) publish(from Status, rec Record) {
	if e.emitter == nil {
		return
	}

	event := events.NewTaskEvent(rec.ID, string(from), string(rec.Status), rec.Message, transitionTime(rec))
	event.Error = rec.Error
	if err := e.emitter.EmitEvent(context.Background(), event); err != nil {
		e.logger.Warn("failed to publish task event",
			"task_id", rec.ID,
			"to", rec.Status,
			"error", err)
	}
}

// transitionTime returns when rec entered its current status.
func transitionTime(rec Record) time.Time {
	switch {
	case rec.Status.IsTerminal() && rec.CompletedAt != nil:
		return *rec.CompletedAt
	case rec.Status == StatusRunning && rec.StartedAt != nil:
		return *rec.StartedAt
	default:
		return rec.CreatedAt
	}
}
