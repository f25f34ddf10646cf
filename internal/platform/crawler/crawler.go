package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/task"
)

const (
	// stderrTailSize is how much trailing stderr is kept for error messages.
	stderrTailSize = 2048

	// DefaultStopGrace applies when Config.StopGrace is not positive.
	DefaultStopGrace = 10 * time.Second

	// EnvCookies carries the login cookies to the child so they stay out of
	// the process table.
	EnvCookies = "CRAWL_COOKIES"
)

// Config describes how to launch the crawler.
type Config struct {
	// Command is the executable, e.g. "python"
	Command string
	// Args precede the generated flags, e.g. ["main.py"]
	Args []string
	// WorkDir is the crawler's working directory; empty uses the current one
	WorkDir string
	// StopGrace is how long an interrupted crawler may take to exit before
	// it is killed. Zero or less means DefaultStopGrace.
	StopGrace time.Duration
	// Env is appended to the inherited environment
	Env []string
}

// EnvProvider is implemented by stores that tell the crawler where to write.
type EnvProvider interface {
	Env() []string
}

// Factory builds command jobs. It implements task.JobFactory.
type Factory struct {
	cfg    Config
	logger *slog.Logger
}

// NewFactory creates a Factory for cfg.
func NewFactory(cfg Config, logger *slog.Logger) (*Factory, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("crawler command must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	return &Factory{
		cfg:    cfg,
		logger: logger.With("component", "crawler"),
	}, nil
}

// NewJob builds the job for one crawl. When store provides an environment,
// it is passed to the child. Cookies go in EnvCookies.
func (f *Factory) NewJob(cfg domain.CrawlConfig, store task.Store) (task.Job, error) {
	args := append(append([]string{}, f.cfg.Args...), BuildArgs(cfg)...)

	env := append([]string{}, f.cfg.Env...)
	if p, ok := store.(EnvProvider); ok {
		env = append(env, p.Env()...)
	}
	if cfg.Cookies != "" {
		env = append(env, EnvCookies+"="+cfg.Cookies)
	}

	return &Job{
		command:   f.cfg.Command,
		args:      args,
		workDir:   f.cfg.WorkDir,
		env:       env,
		stopGrace: f.cfg.StopGrace,
		logger:    f.logger.With("platform", cfg.Platform),
		terminate: terminateProcess,
	}, nil
}

// BuildArgs translates cfg into the crawler's command line flags. Empty
// optional values are omitted. Cookies are never part of the flags.
func BuildArgs(cfg domain.CrawlConfig) []string {
	args := []string{
		"--platform", string(cfg.Platform),
		"--lt", string(cfg.LoginType),
		"--type", string(cfg.CrawlerType),
		"--start", strconv.Itoa(cfg.StartPage),
	}
	if cfg.Keywords != "" {
		args = append(args, "--keywords", cfg.Keywords)
	}
	if cfg.CreatorID != "" {
		args = append(args, "--creator_id", cfg.CreatorID)
	}
	args = append(args,
		"--get_comment", strconv.FormatBool(cfg.GetComments),
		"--get_sub_comment", strconv.FormatBool(cfg.GetSubComments),
		"--save_data_option", string(cfg.SaveDataOption),
		"--max_notes_count", strconv.Itoa(cfg.MaxNotesCount),
	)
	return args
}

// Job is one crawler process. It implements task.Job and task.Closer.
type Job struct {
	command   string
	args      []string
	workDir   string
	env       []string
	stopGrace time.Duration
	logger    *slog.Logger
	terminate func(*exec.Cmd)

	mu  sync.Mutex
	cmd *exec.Cmd
	// interrupted is set once ctx cancellation has signalled the group
	interrupted atomic.Bool
}

// Start launches the crawler and waits for it to exit. Cancelling ctx
// interrupts the process group; after the stop grace period it is killed.
func (j *Job) Start(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, j.command, j.args...)
	cmd.Dir = j.workDir
	if len(j.env) > 0 {
		cmd.Env = append(os.Environ(), j.env...)
	}
	configureProcess(cmd)
	cmd.Cancel = func() error {
		j.interrupted.Store(true)
		return interruptProcess(cmd)
	}
	cmd.WaitDelay = j.stopGrace

	tail := &tailBuffer{limit: stderrTailSize}
	stdout := newLineLogger(j.logger, slog.LevelInfo, "stdout")
	stderr := newLineLogger(j.logger, slog.LevelWarn, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, tail)

	j.logger.Debug("starting crawler process", "command", j.command, "dir", j.workDir)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start crawler: %w", err)
	}

	j.mu.Lock()
	j.cmd = cmd
	j.mu.Unlock()

	err := cmd.Wait()
	stdout.Flush()
	stderr.Flush()

	if err == nil {
		j.logger.Debug("crawler process exited cleanly")
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := fmt.Sprintf("crawler exited with status %d", exitErr.ExitCode())
		if s := strings.TrimSpace(tail.String()); s != "" {
			msg += ": " + s
		}
		return errors.New(msg)
	}
	return fmt.Errorf("crawler failed: %w", err)
}

// Close kills whatever is left of an interrupted process group. A crawler
// that exited on its own is left alone: its pid may already belong to
// another group.
func (j *Job) Close(context.Context) error {
	j.mu.Lock()
	cmd := j.cmd
	j.mu.Unlock()

	if cmd == nil || !j.interrupted.Load() {
		return nil
	}
	j.logger.Debug("killing interrupted process group")
	j.terminate(cmd)
	return nil
}

// Args returns the full argument list passed to the command.
func (j *Job) Args() []string {
	return append([]string{}, j.args...)
}

// lineLogger logs every complete line written to it.
type lineLogger struct {
	logger *slog.Logger
	level  slog.Level
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLineLogger(logger *slog.Logger, level slog.Level, stream string) *lineLogger {
	return &lineLogger{logger: logger, level: level, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(line)
	}
	return len(p), nil
}

// Flush logs a trailing line without newline.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	l.logger.Log(context.Background(), l.level, line, "stream", l.stream)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int

	mu  sync.Mutex
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append([]byte(nil), t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// Ensure Factory implements task.JobFactory and Job implements task.Closer
var (
	_ task.JobFactory = (*Factory)(nil)
	_ task.Closer     = (*Job)(nil)
)
