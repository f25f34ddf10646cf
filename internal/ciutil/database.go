package ciutil

import (
	"log/slog"
	"testing"
)

// TestDatabaseURL returns the external database URL for integration tests,
// or "" when none is configured.
func TestDatabaseURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvTestDatabaseURL, EnvDatabaseURL}, "", logger)
}

// RequireTestDatabaseURL returns the integration database URL. Without one
// the test is skipped locally and fails in CI, where the database is expected
// to be provisioned.
func RequireTestDatabaseURL(t testing.TB) string {
	t.Helper()
	url := TestDatabaseURL(nil)
	if url != "" {
		return url
	}
	if IsCI() {
		t.Fatalf("%s must be set in CI", EnvTestDatabaseURL)
	}
	t.Skipf("%s not set", EnvTestDatabaseURL)
	return ""
}
