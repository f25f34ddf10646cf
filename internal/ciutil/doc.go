// Package ciutil detects the execution environment (CI or local) and locates
// the optional external database used by integration tests.
package ciutil
