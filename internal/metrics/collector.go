package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector handles metrics collection for a retrolog instance.
type Collector struct {
	// Line counts by level name
	writtenByLevel  sync.Map // map[string]*atomic.Uint64
	bufferedByLevel sync.Map // map[string]*atomic.Uint64

	// Evictions by reason (count, age, memory, clear)
	evictedByReason sync.Map // map[string]*atomic.Uint64

	// Error metrics
	errorCount     uint64
	errorsBySource sync.Map // map[string]*atomic.Uint64

	// Flush metrics
	flushCount     uint64
	predicateFalse uint64

	// Performance metrics
	writeCount     uint64
	totalWriteTime int64 // nanoseconds
	maxWriteTime   int64 // nanoseconds
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Metrics contains a snapshot of the collected counters.
type Metrics struct {
	// Line counts by level
	LinesWritten  map[string]uint64 `json:"lines_written"`
	LinesBuffered map[string]uint64 `json:"lines_buffered"`
	LinesEvicted  map[string]uint64 `json:"lines_evicted"`

	// Flush metrics
	FlushCount     uint64 `json:"flush_count"`
	PredicateFalse uint64 `json:"predicate_false"`

	// Error metrics
	ErrorCount     uint64            `json:"error_count"`
	ErrorsBySource map[string]uint64 `json:"errors_by_source"`

	// Performance metrics
	WriteCount       uint64        `json:"write_count"`
	AverageWriteTime time.Duration `json:"average_write_time"`
	MaxWriteTime     time.Duration `json:"max_write_time"`
}

// GetMetrics returns current metrics snapshot.
func (c *Collector) GetMetrics() Metrics {
	metrics := Metrics{
		LinesWritten:   snapshot(&c.writtenByLevel),
		LinesBuffered:  snapshot(&c.bufferedByLevel),
		LinesEvicted:   snapshot(&c.evictedByReason),
		FlushCount:     atomic.LoadUint64(&c.flushCount),
		PredicateFalse: atomic.LoadUint64(&c.predicateFalse),
		ErrorCount:     atomic.LoadUint64(&c.errorCount),
		ErrorsBySource: snapshot(&c.errorsBySource),
		WriteCount:     atomic.LoadUint64(&c.writeCount),
	}

	if metrics.WriteCount > 0 {
		metrics.AverageWriteTime = time.Duration(atomic.LoadInt64(&c.totalWriteTime)) / time.Duration(metrics.WriteCount)
	}
	metrics.MaxWriteTime = time.Duration(atomic.LoadInt64(&c.maxWriteTime))

	return metrics
}

// ResetMetrics resets all metrics counters.
func (c *Collector) ResetMetrics() {
	for _, m := range []*sync.Map{&c.writtenByLevel, &c.bufferedByLevel, &c.evictedByReason, &c.errorsBySource} {
		m.Range(func(key, value interface{}) bool {
			value.(*atomic.Uint64).Store(0)
			return true
		})
	}

	atomic.StoreUint64(&c.errorCount, 0)
	atomic.StoreUint64(&c.flushCount, 0)
	atomic.StoreUint64(&c.predicateFalse, 0)
	atomic.StoreUint64(&c.writeCount, 0)
	atomic.StoreInt64(&c.totalWriteTime, 0)
	atomic.StoreInt64(&c.maxWriteTime, 0)
}

// TrackLineWritten increments the written counter for a level.
func (c *Collector) TrackLineWritten(level string) {
	increment(&c.writtenByLevel, level)
}

// TrackLineBuffered increments the buffered counter for a level.
func (c *Collector) TrackLineBuffered(level string) {
	increment(&c.bufferedByLevel, level)
}

// TrackEviction increments the eviction counter for a reason.
func (c *Collector) TrackEviction(reason string) {
	increment(&c.evictedByReason, reason)
}

// TrackFlush counts one completed flush pass.
func (c *Collector) TrackFlush() {
	atomic.AddUint64(&c.flushCount, 1)
}

// TrackPredicateFalse counts a line a predicate declined to write.
func (c *Collector) TrackPredicateFalse() {
	atomic.AddUint64(&c.predicateFalse, 1)
}

// TrackWrite records the latency of one backend call.
func (c *Collector) TrackWrite(duration time.Duration) {
	atomic.AddUint64(&c.writeCount, 1)
	atomic.AddInt64(&c.totalWriteTime, int64(duration))

	// Update max write time
	for {
		oldMax := atomic.LoadInt64(&c.maxWriteTime)
		if int64(duration) <= oldMax {
			break
		}
		if atomic.CompareAndSwapInt64(&c.maxWriteTime, oldMax, int64(duration)) {
			break
		}
	}
}

// TrackError increments the error counter and tracks by source.
func (c *Collector) TrackError(source string) {
	atomic.AddUint64(&c.errorCount, 1)
	increment(&c.errorsBySource, source)
}

// GetWrittenCount returns the number of lines written at a specific level.
func (c *Collector) GetWrittenCount(level string) uint64 {
	return load(&c.writtenByLevel, level)
}

// GetEvictedCount returns the number of lines evicted for a reason.
func (c *Collector) GetEvictedCount(reason string) uint64 {
	return load(&c.evictedByReason, reason)
}

// GetErrorCount returns the total error count.
func (c *Collector) GetErrorCount() uint64 {
	return atomic.LoadUint64(&c.errorCount)
}

// GetErrorCountBySource returns the error count for a specific source.
func (c *Collector) GetErrorCountBySource(source string) uint64 {
	return load(&c.errorsBySource, source)
}

func increment(m *sync.Map, key string) {
	val, _ := m.LoadOrStore(key, &atomic.Uint64{})
	val.(*atomic.Uint64).Add(1)
}

func load(m *sync.Map, key string) uint64 {
	if val, ok := m.Load(key); ok {
		if counter, ok := val.(*atomic.Uint64); ok {
			return counter.Load()
		}
	}
	return 0
}

func snapshot(m *sync.Map) map[string]uint64 {
	out := make(map[string]uint64)
	m.Range(func(key, value interface{}) bool {
		if count := value.(*atomic.Uint64).Load(); count > 0 {
			out[key.(string)] = count
		}
		return true
	})
	return out
}
