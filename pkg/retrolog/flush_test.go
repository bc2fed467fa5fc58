package retrolog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteIf_WritesInTimestampOrder(t *testing.T) {
	clock := newFakeClock()
	rec := newRecorder()
	logger := newTestLogger(t, rec, WithWriteLevel(LevelWarn))
	logger.Hub().SetClock(clock.Now)

	logger.Info("a")
	clock.Advance(time.Millisecond)
	logger.Trace("b")
	clock.Advance(time.Millisecond)
	logger.Debug("c")
	logger.Info("d") // same timestamp as c, later arrival

	n, err := logger.WriteIf(LevelTrace, nil)
	if err != nil || n != 4 {
		t.Fatalf("WriteIf() = %d, %v; want 4, nil", n, err)
	}
	if got := rec.messages(); !equalStrings(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("written = %v, want [a b c d]", got)
	}
	if logger.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", logger.Buffered())
	}
	if m := logger.Metrics(); m.FlushCount != 1 {
		t.Errorf("FlushCount = %d, want 1", m.FlushCount)
	}
}

func TestWriteIf_Cutoff(t *testing.T) {
	rec := newRecorder()
	logger := newTestLogger(t, rec, WithWriteLevel(LevelWarn))

	logger.Debug("d")
	logger.Info("i")

	if n, _ := logger.WriteIf(LevelInfo, nil); n != 1 {
		t.Errorf("WriteIf(info) = %d, want 1", n)
	}
	if got := rec.levels(); !equalStrings(got, []string{LevelInfo}) {
		t.Errorf("written = %v", got)
	}
	if logger.BufferedLevel(LevelDebug) != 1 {
		t.Error("debug line below the cutoff should stay buffered")
	}
}

func TestWriteIf_UnknownCutoff(t *testing.T) {
	logger := newTestLogger(t, newRecorder())
	if _, err := logger.WriteIf("verbose", nil); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("WriteIf() error = %v, want ErrUnknownLevel", err)
	}
}

func TestWriteIf_Predicate(t *testing.T) {
	rec := newRecorder()
	logger := newTestLogger(t, rec, WithWriteLevel(LevelError))

	logger.Debug("keep-1")
	logger.Debug("drop")
	logger.Debug("keep-2")

	keep := func(meta Metadata, payload []interface{}) (bool, error) {
		return strings.HasPrefix(fmt.Sprint(payload...), "keep"), nil
	}
	if n, _ := logger.WriteIf(LevelTrace, keep); n != 2 {
		t.Errorf("WriteIf() = %d, want 2", n)
	}
	if got := rec.messages(); !equalStrings(got, []string{"keep-1", "keep-2"}) {
		t.Errorf("written = %v", got)
	}
	if logger.Buffered() != 1 {
		t.Errorf("Buffered() = %d, want 1", logger.Buffered())
	}
}

func TestWriteIf_PredicateFailureKeepsLine(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
	}{
		{
			name: "error",
			pred: func(Metadata, []interface{}) (bool, error) { return true, errors.New("cannot decide") },
		},
		{
			name: "panic",
			pred: func(Metadata, []interface{}) (bool, error) { panic("predicate bug") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			logger := newTestLogger(t, rec, WithWriteLevel(LevelError))
			logger.Debug("x")

			n, err := logger.WriteIf(LevelTrace, tt.pred)
			if err != nil || n != 0 {
				t.Fatalf("WriteIf() = %d, %v; want 0, nil", n, err)
			}
			if logger.Buffered() != 1 || rec.count() != 0 {
				t.Error("line should stay buffered and unwritten")
			}
			last := logger.LastError()
			if last == nil || last.Operation != "flush" {
				t.Errorf("LastError() = %v, want a flush diagnostic", last)
			}
		})
	}
}

func TestWriteIf_BackendFailureKeepsLine(t *testing.T) {
	rec := newRecorder()
	logger := newTestLogger(t, rec, WithWriteLevel(LevelError))
	logger.Debug("first")
	logger.Info("second")

	rec.setFail(LevelDebug, true)
	n, _ := logger.WriteIf(LevelTrace, nil)
	if n != 1 {
		t.Errorf("WriteIf() = %d, want 1", n)
	}
	if logger.BufferedLevel(LevelDebug) != 1 {
		t.Error("failed line should stay buffered")
	}
	if last := logger.LastError(); last == nil || last.Operation != "write" {
		t.Errorf("LastError() = %v", last)
	}

	rec.setFail(LevelDebug, false)
	if n, _ := logger.WriteIf(LevelTrace, nil); n != 1 {
		t.Errorf("retry WriteIf() = %d, want 1", n)
	}
	if got := rec.messages(); !equalStrings(got, []string{"second", "first"}) {
		t.Errorf("written = %v", got)
	}
}

func TestWriteIf_SmallBatches(t *testing.T) {
	rec := newRecorder()
	logger := newTestLogger(t, rec, WithWriteLevel(LevelError), WithFlushBatchSize(1))

	for i := 0; i < 25; i++ {
		logger.Debug(i)
	}
	if n, _ := logger.WriteIf(LevelTrace, nil); n != 25 {
		t.Errorf("WriteIf() = %d, want 25", n)
	}
}

// slowBackend records how many writes overlap.
type slowBackend struct {
	active    atomic.Int32
	maxActive atomic.Int32
	writes    atomic.Int32
	mu        sync.Mutex
	seen      map[string]int
}

func (b *slowBackend) WriteLevel(level string, args ...interface{}) error {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		peak := b.maxActive.Load()
		if n <= peak || b.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(100 * time.Microsecond)
	b.writes.Add(1)

	b.mu.Lock()
	b.seen[fmt.Sprint(args...)]++
	b.mu.Unlock()
	return nil
}

func TestWriteIf_ConcurrentCallsAreSerialized(t *testing.T) {
	backend := &slowBackend{seen: make(map[string]int)}
	logger := newTestLogger(t, backend, WithWriteLevel(LevelError))

	const lines = 60
	for i := 0; i < lines; i++ {
		logger.Debug(i)
	}

	var total atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 6; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := logger.WriteIf(LevelTrace, nil)
			if err != nil {
				t.Errorf("WriteIf() error = %v", err)
			}
			total.Add(int32(n))
		}()
	}
	wg.Wait()

	if total.Load() != lines || backend.writes.Load() != lines {
		t.Errorf("written = %d, backend writes = %d, want %d", total.Load(), backend.writes.Load(), lines)
	}
	if backend.maxActive.Load() != 1 {
		t.Errorf("max concurrent writes = %d, want 1", backend.maxActive.Load())
	}
	for msg, n := range backend.seen {
		if n != 1 {
			t.Errorf("line %q written %d times", msg, n)
		}
	}
}

func TestFlushAsync_RunsInCallOrder(t *testing.T) {
	rec := newRecorder()
	logger := newTestLogger(t, rec, WithWriteLevel(LevelError))
	logger.Debug("a")
	logger.Debug("b")
	logger.Debug("c")

	onlyA := func(meta Metadata, payload []interface{}) (bool, error) {
		return fmt.Sprint(payload...) == "a", nil
	}
	if err := logger.FlushAsync(LevelTrace, onlyA); err != nil {
		t.Fatal(err)
	}
	if err := logger.FlushAsync(LevelTrace, nil); err != nil {
		t.Fatal(err)
	}
	logger.Sync()

	if got := rec.messages(); !equalStrings(got, []string{"a", "b", "c"}) {
		t.Errorf("written = %v, want [a b c]", got)
	}
}

func TestFlushAsync_Errors(t *testing.T) {
	logger := newTestLogger(t, newRecorder())
	if err := logger.FlushAsync("verbose", nil); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("FlushAsync() error = %v, want ErrUnknownLevel", err)
	}
	logger.Close()
	if err := logger.FlushAsync(LevelTrace, nil); !errors.Is(err, ErrLoggerClosed) {
		t.Errorf("FlushAsync() after Close error = %v, want ErrLoggerClosed", err)
	}
}

func TestClose_WaitsForPendingFlush(t *testing.T) {
	backend := &slowBackend{seen: make(map[string]int)}
	logger := newTestLogger(t, backend, WithWriteLevel(LevelError))
	for i := 0; i < 20; i++ {
		logger.Debug(i)
	}

	if err := logger.FlushAsync(LevelTrace, nil); err != nil {
		t.Fatal(err)
	}
	logger.Close()

	if backend.writes.Load() != 20 {
		t.Errorf("backend writes = %d, want 20", backend.writes.Load())
	}
}
