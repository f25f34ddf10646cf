package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/pressly/goose/v3"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names registered by the imported drivers.
const (
	postgresDriver = "pgx"
	sqliteDriver   = "sqlite"
)

// Environment variables handed to the crawler so it writes where the store
// was opened.
const (
	EnvSQLitePath  = "CRAWL_SQLITE_PATH"
	EnvDatabaseURL = "CRAWL_DATABASE_URL"
)

var (
	// ErrUnsupportedTarget is returned for save options without a database.
	ErrUnsupportedTarget = errors.New("save option has no database target")
	// ErrMissingDatabaseURL is returned when the external database is
	// requested but no URL is configured.
	ErrMissingDatabaseURL = errors.New("database url is not configured")
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// Opener opens record stores. It is safe for concurrent use; migrations of
// the same target never run concurrently.
type Opener struct {
	SQLitePath  string
	DatabaseURL string
	Logger      *slog.Logger

	mu sync.Mutex
}

// Store is an open database that crawl records are written to.
type Store struct {
	target domain.SaveDataOption
	db     *sql.DB
	env    []string
}

// Open connects to the database behind option and brings its schema up to
// date.
func (o *Opener) Open(ctx context.Context, option domain.SaveDataOption) (*Store, error) {
	var (
		driver, dsn, dir string
		dialect          goose.Dialect
		env              []string
	)

	switch option {
	case domain.SaveDataSQLite:
		path, err := filepath.Abs(o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sqlite path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		driver = sqliteDriver
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		dir = "migrations/sqlite"
		dialect = goose.DialectSQLite3
		env = []string{EnvSQLitePath + "=" + path}
	case domain.SaveDataDB:
		if o.DatabaseURL == "" {
			return nil, ErrMissingDatabaseURL
		}
		driver = postgresDriver
		dsn = o.DatabaseURL
		dir = "migrations/postgres"
		dialect = goose.DialectPostgres
		env = []string{EnvDatabaseURL + "=" + o.DatabaseURL}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTarget, option)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", option, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", option, err)
	}

	if err := o.migrate(ctx, db, dialect, dir); err != nil {
		_ = db.Close()
		return nil, err
	}

	o.logger().Debug("record store opened", "target", option)
	return &Store{target: option, db: db, env: env}, nil
}

func (o *Opener) migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		o.logger().Info("applied migration",
			"dialect", dialect,
			"version", r.Source.Version,
			"duration_ms", r.Duration.Milliseconds())
	}
	return nil
}

func (o *Opener) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Target returns the save option the store was opened for.
func (s *Store) Target() domain.SaveDataOption {
	return s.target
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Env returns the environment the crawler needs to write to this store.
func (s *Store) Env() []string {
	return append([]string{}, s.env...)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.target, err)
	}
	return nil
}
