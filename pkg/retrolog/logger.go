package retrolog

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/retrolog/internal/buffer"
	"github.com/wayneeseguin/retrolog/internal/cache"
	"github.com/wayneeseguin/retrolog/internal/metrics"
)

// errorChannelSize is the capacity of the diagnostic error channel. Errors
// are dropped when nobody drains it.
const errorChannelSize = 100

// Logger buffers lines below its write level and writes lines at or above
// it to a backend. Buffered lines can be promoted later with WriteIf.
//
// A Logger and every child derived from it with With share one Hub, and
// therefore one ring of buffered lines. Each instance has its own buffer
// partition, flush queue, write condition and metrics.
//
// All methods are safe for concurrent use.
type Logger struct {
	hub     *Hub
	ownsHub bool
	root    *Logger
	config  *Config

	levels    Levels
	threshold int
	errorRank int
	dispatch  *dispatchTable

	buf       *buffer.Manager
	flushLock *fifoLock
	predicate Predicate
	fields    map[string]interface{}
	cacheKey  string

	// Error handling
	errorHandler ErrorHandler
	errorChannel chan LogError
	mu           sync.Mutex
	lastError    *LogError
	errorCount   uint64

	metricsCollector *metrics.Collector

	// State management
	lifecycle    sync.RWMutex // orders pending.Add against teardown
	pending      sync.WaitGroup
	closed       atomic.Bool
	teardownOnce sync.Once
	teardownErr  error
}

// New creates a Logger writing to backend, configured by DefaultConfig and
// the given options.
//
// The backend must implement LevelWriter, or Debug, Info, Warn and Error
// methods taking ...interface{}. Anything else fails with a
// *ConfigurationError wrapping ErrMissingLevelMethod.
//
// Parameters:
//   - backend: The logger lines are eventually written to
//   - options: Functional options applied over DefaultConfig
//
// Returns:
//   - *Logger: The root logger
//   - error: A *ConfigurationError if the configuration or backend is invalid
//
// Example:
//
//	logger, err := retrolog.New(backend,
//		retrolog.WithWriteLevel(retrolog.LevelWarn),
//		retrolog.WithCondition(retrolog.BindDumpOnError(retrolog.LevelDebug)),
//	)
//	if err != nil {
//		return err
//	}
//	defer logger.Close()
func New(backend interface{}, options ...Option) (*Logger, error) {
	config := DefaultConfig()
	for _, opt := range options {
		if err := opt(config); err != nil {
			return nil, err
		}
	}
	return NewWithConfig(backend, config)
}

// NewWithConfig creates a Logger from an explicit Config. The Config is
// copied and validated; later changes to it have no effect.
func NewWithConfig(backend interface{}, config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := config.clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dispatch, err := newDispatchTable(backend, cfg.Levels)
	if err != nil {
		return nil, err
	}

	hub, ownsHub := cfg.Hub, false
	if hub == nil {
		hub, ownsHub = newHub(cfg), true
	} else if hub.isClosed() {
		return nil, configError("Hub", "hub is closed", nil)
	}

	l := newInstance(hub, cfg, dispatch, nil, "")
	l.ownsHub = ownsHub
	l.root = l
	l.errorChannel = make(chan LogError, errorChannelSize)
	return l, nil
}

// newInstance builds a root or child logger and registers its buffer with
// the hub's pool.
func newInstance(hub *Hub, cfg *Config, dispatch *dispatchTable, fields map[string]interface{}, key string) *Logger {
	threshold, _ := cfg.Levels.Rank(cfg.WriteLevel)
	l := &Logger{
		hub:              hub,
		config:           cfg,
		levels:           cfg.Levels,
		threshold:        threshold,
		errorRank:        cfg.Levels.ErrorRank(),
		dispatch:         dispatch,
		flushLock:        newFIFOLock(),
		fields:           fields,
		cacheKey:         key,
		errorHandler:     cfg.ErrorHandler,
		metricsCollector: metrics.NewCollector(),
	}
	l.buf = hub.pool.NewManager(l.onEvict)
	if cfg.Condition != nil {
		l.predicate = cfg.Condition(l)
	}
	return l
}

// onEvict runs under the pool lock whenever one of this logger's lines is
// dropped unwritten.
func (l *Logger) onEvict(level string, reason buffer.EvictReason) {
	l.metricsCollector.TrackEviction(reason.String())
}

// Log handles one line at level.
//
// A line ranked below the write level is buffered. A line at or above it is
// written to the backend immediately, unless a write condition is
// configured: then the line is buffered first, the condition is evaluated,
// and the line is written only if it approves. A line whose write fails
// stays buffered for the next WriteIf.
//
// Log returns an error only for an unknown level or a closed logger.
func (l *Logger) Log(level string, args ...interface{}) error {
	if l.closed.Load() {
		return ErrLoggerClosed
	}
	rank, err := l.levels.rankOf(level)
	if err != nil {
		return err
	}

	switch {
	case rank < l.threshold:
		return l.bufferLine(level, rank, args)
	case l.predicate == nil:
		l.writeNow(level, rank, args)
		return nil
	default:
		return l.writeConditional(level, rank, args)
	}
}

// Trace logs at "trace".
func (l *Logger) Trace(args ...interface{}) { l.logOrReport(LevelTrace, args) }

// Debug logs at "debug".
func (l *Logger) Debug(args ...interface{}) { l.logOrReport(LevelDebug, args) }

// Info logs at "info".
func (l *Logger) Info(args ...interface{}) { l.logOrReport(LevelInfo, args) }

// Warn logs at "warn".
func (l *Logger) Warn(args ...interface{}) { l.logOrReport(LevelWarn, args) }

// Error logs at "error".
func (l *Logger) Error(args ...interface{}) { l.logOrReport(LevelError, args) }

// Fatal logs at "fatal". It does not exit.
func (l *Logger) Fatal(args ...interface{}) { l.logOrReport(LevelFatal, args) }

func (l *Logger) logOrReport(level string, args []interface{}) {
	if err := l.Log(level, args...); err != nil && !errors.Is(err, ErrLoggerClosed) {
		l.logError("intake", level, "line dropped", err, ErrorLevelLow)
	}
}

func (l *Logger) bufferLine(level string, rank int, args []interface{}) error {
	if _, err := l.buf.AddLine(level, buffer.NewLine(level, rank, args)); err != nil {
		return errors.Wrap(ErrLoggerClosed, err.Error())
	}
	l.metricsCollector.TrackLineBuffered(level)
	return nil
}

func (l *Logger) writeNow(level string, rank int, args []interface{}) {
	if err := l.timedWrite(level, args); err != nil {
		l.logError("write", level, "backend write failed, line buffered", err, ErrorLevelMedium)
		_ = l.bufferLine(level, rank, args)
		return
	}
	l.metricsCollector.TrackLineWritten(level)
}

// writeConditional buffers the line before consulting the condition so that
// a flush the condition triggers sees it in timestamp order with the lines
// logged before it.
func (l *Logger) writeConditional(level string, rank int, args []interface{}) error {
	line := buffer.NewLine(level, rank, args)
	if _, err := l.buf.AddLine(level, line); err != nil {
		return errors.Wrap(ErrLoggerClosed, err.Error())
	}
	cand := l.buf.Candidate(line)
	cand.Payload = args

	approved, err := l.evaluate(l.predicate, l.metadata(cand), args)
	if err != nil {
		l.logError("predicate", level, "write condition failed, line buffered", err, ErrorLevelMedium)
		l.metricsCollector.TrackLineBuffered(level)
		return nil
	}
	if !approved {
		l.metricsCollector.TrackPredicateFalse()
		l.metricsCollector.TrackLineBuffered(level)
		return nil
	}

	l.flushLock.Lock()
	defer l.flushLock.Unlock()

	payload, state := l.buf.ClaimLine(line)
	switch state {
	case buffer.ClaimAcquired:
		l.writeClaimed(line.ID, level, payload)
	case buffer.ClaimEvicted:
		// The ring wrapped while the condition ran or the flush queue drained.
		l.writeNow(level, rank, args)
	}
	return nil
}

func (l *Logger) timedWrite(level string, args []interface{}) error {
	start := time.Now()
	if err := l.dispatch.write(level, args); err != nil {
		return err
	}
	l.metricsCollector.TrackWrite(time.Since(start))
	return nil
}

// With returns the child instance for fields. Children are cached in the
// hub's instance cache keyed by the root and the per-line fields, so
// repeated calls with the same fields return the same child until it is
// evicted. An evicted child is closed; call With again for a fresh one.
//
// The child's backend is derived with Child when the backend implements
// ChildCreator and is shared with the root otherwise.
func (l *Logger) With(fields map[string]interface{}) (*Logger, error) {
	if l.closed.Load() || l.hub.isClosed() {
		return nil, ErrLoggerClosed
	}
	merged := mergeFields(l.fields, fields)

	instances := l.hub.instances
	if instances == nil {
		return l.root.newChild(merged, "")
	}

	key := l.root.instanceKey(merged)
	for attempt := 0; attempt < 2; attempt++ {
		child, err := instances.GetOrCreate(key, func() (*Logger, error) {
			return l.root.newChild(merged, key)
		})
		if err != nil {
			return nil, err
		}
		if !child.closed.Load() {
			return child, nil
		}
		instances.RemoveFunc(key, func(v *Logger) bool { return v == child })
	}
	return nil, ErrLoggerClosed
}

func (l *Logger) newChild(fields map[string]interface{}, key string) (*Logger, error) {
	if l.closed.Load() {
		return nil, ErrLoggerClosed
	}
	dispatch, err := l.dispatch.child(fields, l.levels)
	if err != nil {
		return nil, err
	}
	child := newInstance(l.hub, l.config, dispatch, fields, key)
	child.root = l
	child.errorChannel = l.errorChannel
	return child, nil
}

// instanceKey is the root's owner id followed by the fingerprint of the
// per-line fields.
func (l *Logger) instanceKey(fields map[string]interface{}) string {
	selected := fields
	if len(l.config.PerLineFields) > 0 {
		selected = make(map[string]interface{}, len(l.config.PerLineFields))
		for _, name := range l.config.PerLineFields {
			if v, ok := fields[name]; ok {
				selected[name] = v
			}
		}
	}
	return l.keyPrefix() + cache.Key(selected)
}

func (l *Logger) keyPrefix() string {
	return strconv.FormatUint(uint64(l.buf.ID()), 10) + "|"
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// Fields returns the fields of this instance. The map must not be modified.
func (l *Logger) Fields() map[string]interface{} {
	return l.fields
}

// WriteLevel returns the configured write level.
func (l *Logger) WriteLevel() string {
	return l.config.WriteLevel
}

// Levels returns a copy of the level table.
func (l *Logger) Levels() Levels {
	return l.levels.clone()
}

// Hub returns the hub the logger belongs to.
func (l *Logger) Hub() *Hub {
	return l.hub
}

// Buffered returns the number of lines this instance holds in memory.
func (l *Logger) Buffered() int {
	return l.buf.Len()
}

// BufferedLevel returns the number of buffered lines at level.
func (l *Logger) BufferedLevel(level string) int {
	return l.buf.LevelSize(level)
}

// TrimStats reports what one Trim evicted.
type TrimStats struct {
	Reclaimed     int // Ring slots of written or deleted lines freed
	Aged          int // Lines older than LineLimits.MaxAge
	MemoryEvicted int // Lines dropped by the memory backstop
}

// Trim applies the hub's line limits now. The limits act on the whole ring,
// so lines of other instances sharing the hub can be evicted too.
func (l *Logger) Trim() TrimStats {
	limits := l.hub.limits
	l.buf.LimitByMaxCount()
	return TrimStats{
		Reclaimed:     l.buf.LimitByAlreadyWritten(),
		Aged:          l.buf.LimitByMaxAge(limits.MaxAge),
		MemoryEvicted: l.buf.LimitByMinFreeMemory(limits.ReservedBytes, limits.FreeMemoryFraction),
	}
}

// Metrics returns a snapshot of this instance's counters.
func (l *Logger) Metrics() metrics.Metrics {
	return l.metricsCollector.GetMetrics()
}

// Errors returns the diagnostic channel. It is shared by a root and all its
// children and never blocks the logger: errors are dropped when it is full.
func (l *Logger) Errors() <-chan LogError {
	return l.errorChannel
}

// LastError returns the most recent diagnostic error of this instance.
func (l *Logger) LastError() *LogError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}

// ErrorCount returns how many diagnostic errors this instance reported.
func (l *Logger) ErrorCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorCount
}

func (l *Logger) logError(operation, level, message string, err error, severity ErrorLevel) {
	logErr := LogError{
		Operation: operation,
		Level:     level,
		Message:   message,
		Err:       err,
		Severity:  severity,
		Timestamp: time.Now(),
	}
	if len(l.fields) > 0 {
		logErr.Context = map[string]interface{}{"fields": l.fields}
	}

	l.mu.Lock()
	l.lastError = &logErr
	l.errorCount++
	l.mu.Unlock()

	if l.errorChannel != nil {
		select {
		case l.errorChannel <- logErr:
		default:
		}
	}

	if l.errorHandler != nil {
		l.errorHandler(logErr)
	}

	l.metricsCollector.TrackError(operation)
}

// IsClosed reports whether the logger was closed or evicted.
func (l *Logger) IsClosed() bool {
	return l.closed.Load()
}

// Close waits for pending flushes, then drops every buffered line of this
// instance without writing it. Call WriteIf first to keep them.
//
// Closing a root also closes its children and, if the root created its own
// hub, the hub. Closing a child removes it from the instance cache.
func (l *Logger) Close() error {
	return l.CloseContext(context.Background())
}

// CloseContext is Close with a deadline for the buffer teardown. When ctx
// ends first, the lines not yet dropped are released when the hub closes.
func (l *Logger) CloseContext(ctx context.Context) error {
	instances := l.hub.instances
	switch {
	case instances == nil:
	case l.root == l:
		prefix := l.keyPrefix()
		for _, key := range instances.Keys() {
			if strings.HasPrefix(key, prefix) {
				instances.Remove(key)
			}
		}
	case l.cacheKey != "":
		instances.RemoveFunc(l.cacheKey, func(v *Logger) bool { return v == l })
	}

	err := l.teardown(ctx)
	if l.ownsHub {
		if hubErr := l.hub.Close(); err == nil {
			err = hubErr
		}
	}
	return err
}

// teardown closes the instance and releases its buffer. It runs at most
// once; later calls return the first result.
func (l *Logger) teardown(ctx context.Context) error {
	l.teardownOnce.Do(func() {
		l.lifecycle.Lock()
		l.closed.Store(true)
		l.lifecycle.Unlock()
		l.pending.Wait()
		if err := l.buf.Release(ctx); err != nil {
			l.teardownErr = errors.Wrap(err, "release buffer")
			l.logError("teardown", "", "buffer release interrupted", err, ErrorLevelHigh)
		}
	})
	return l.teardownErr
}
