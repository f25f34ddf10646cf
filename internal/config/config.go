package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Crawler  CrawlerConfig  `mapstructure:"crawler" validate:"required"`
	Output   OutputConfig   `mapstructure:"output" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// CrawlerConfig describes how the external crawler process is launched.
type CrawlerConfig struct {
	// Command is the executable, e.g. "python".
	Command string `mapstructure:"command" validate:"required"`
	// Args precede the per-task arguments, e.g. ["main.py"].
	Args []string `mapstructure:"args"`
	// WorkDir is the crawler checkout; empty means the server's directory.
	WorkDir string `mapstructure:"work_dir"`
	// StopGraceSeconds is how long a stopped crawler may keep running after
	// the interrupt before it is killed. At least one second.
	StopGraceSeconds int `mapstructure:"stop_grace_seconds" validate:"gte=1"`
}

// StopGrace returns the interrupt-to-kill delay.
func (c CrawlerConfig) StopGrace() time.Duration {
	return time.Duration(c.StopGraceSeconds) * time.Second
}

// OutputConfig locates the shared output area the crawler writes into.
type OutputConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// DatabaseConfig configures the stateful persistence targets.
type DatabaseConfig struct {
	// URL is the external database used by the "db" save option.
	URL string `mapstructure:"url" validate:"omitempty,url"`
	// SQLitePath is the database file used by the "sqlite" save option.
	SQLitePath string `mapstructure:"sqlite_path" validate:"required"`
}
