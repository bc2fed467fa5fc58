package retrolog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by DefaultConfig.
const (
	EnvWriteLevel   = "RETROLOG_WRITE_LEVEL"
	EnvMaxLines     = "RETROLOG_MAX_LINES"
	EnvMaxLineAge   = "RETROLOG_MAX_LINE_AGE"
	EnvMaxInstances = "RETROLOG_MAX_INSTANCES"
)

// isTestMode detects if we're running under go test
func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}

	if exe, err := os.Executable(); err == nil {
		if strings.HasSuffix(filepath.Base(exe), ".test") {
			return true
		}
	}

	return false
}

// getDefaultErrorHandler returns the appropriate error handler based on environment
func getDefaultErrorHandler() ErrorHandler {
	if isTestMode() {
		return SilentErrorHandler
	}
	return StderrErrorHandler
}

// envString returns the value of key, or def when unset or blank.
func envString(key, def string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return def
}

// envPositiveInt returns key parsed as a positive int, or def.
func envPositiveInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envDuration returns key parsed with time.ParseDuration, or def.
// A bare integer is read as seconds.
func envDuration(key string, def time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
