// Package testing holds helpers that decide whether slow tests touching
// external services (a NATS server, the real filesystem under load) run.
package testing

import (
	"os"
	"testing"
)

const (
	envUnitOnly    = "RETROLOG_UNIT_TESTS_ONLY"
	envIntegration = "RETROLOG_RUN_INTEGRATION_TESTS"
	envNATSURL     = "RETROLOG_TEST_NATS_URL"

	defaultNATSURL = "nats://127.0.0.1:4222"
)

// Unit reports whether only unit tests should run. Integration tests are
// opt-in: they run only when RETROLOG_RUN_INTEGRATION_TESTS=true and neither
// RETROLOG_UNIT_TESTS_ONLY=true nor -short is set.
func Unit() bool {
	if os.Getenv(envUnitOnly) == "true" {
		return true
	}
	if testing.Short() {
		return true
	}
	return os.Getenv(envIntegration) != "true"
}

// Integration reports whether integration tests should run.
func Integration() bool {
	return !Unit()
}

// SkipIfUnit skips t unless integration tests are enabled.
func SkipIfUnit(t testing.TB, message ...string) {
	t.Helper()
	if Unit() {
		msg := "skipping integration test in unit mode"
		if len(message) > 0 {
			msg = message[0]
		}
		t.Skip(msg)
	}
}

// SkipIfIntegration skips t when integration tests are enabled.
func SkipIfIntegration(t testing.TB, message ...string) {
	t.Helper()
	if Integration() {
		msg := "skipping unit-only test in integration mode"
		if len(message) > 0 {
			msg = message[0]
		}
		t.Skip(msg)
	}
}

// NATSURL returns the server integration tests publish to.
func NATSURL() string {
	if url := os.Getenv(envNATSURL); url != "" {
		return url
	}
	return defaultNATSURL
}
