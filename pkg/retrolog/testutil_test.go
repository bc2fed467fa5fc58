package retrolog

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type call struct {
	level  string
	args   []interface{}
	fields map[string]interface{}
}

// recorder is a LevelWriter backend that remembers every call.
type recorder struct {
	mu     sync.Mutex
	calls  []call
	fail   map[string]bool
	fields map[string]interface{}
	parent *recorder
}

func newRecorder() *recorder {
	return &recorder{fail: make(map[string]bool)}
}

func (r *recorder) WriteLevel(level string, args ...interface{}) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	if root.fail[level] {
		return errors.New("backend unavailable")
	}
	root.calls = append(root.calls, call{level: level, args: args, fields: r.fields})
	return nil
}

func (r *recorder) root() *recorder {
	if r.parent != nil {
		return r.parent.root()
	}
	return r
}

func (r *recorder) setFail(level string, fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[level] = fail
}

func (r *recorder) levels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.level
	}
	return out
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = fmt.Sprint(c.args...)
	}
	return out
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// childRecorder also implements ChildCreator.
type childRecorder struct {
	*recorder
}

func (c childRecorder) Child(fields map[string]interface{}) interface{} {
	return childRecorder{&recorder{parent: c.recorder, fields: fields}}
}

// methodBackend has level methods instead of WriteLevel.
type methodBackend struct {
	mu    sync.Mutex
	calls []string
}

func (m *methodBackend) record(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, level)
}

func (m *methodBackend) Debug(args ...interface{}) { m.record(LevelDebug) }
func (m *methodBackend) Info(args ...interface{})  { m.record(LevelInfo) }
func (m *methodBackend) Warn(args ...interface{})  { m.record(LevelWarn) }
func (m *methodBackend) Error(args ...interface{}) { m.record(LevelError) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestLogger creates a logger without a maintenance loop and closes it
// when the test ends.
func newTestLogger(t *testing.T, backend interface{}, options ...Option) *Logger {
	t.Helper()
	opts := append([]Option{
		WithCleanupInterval(0),
		WithErrorHandler(SilentErrorHandler),
	}, options...)
	logger, err := New(backend, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
