// Package buffer holds buffered log lines in memory until they are written
// or evicted.
//
// Lines live in a flat arena owned by a Pool and are referenced by LineID
// from two places: the per-level LineStore of the Manager that owns them and
// the Pool-wide Ring that records arrival order. A single mutex inside the
// Pool guards the arena, the ring and every LineStore, so a line is reachable
// from the ring exactly as long as it is present in its LineStore.
package buffer

import (
	"time"
)

// LineID identifies a line in a Pool's arena. IDs are assigned in arrival
// order and are never reused, so a stale id left in the ring can never
// resolve to a newer line.
type LineID uint64

// OwnerID identifies the Manager a line belongs to.
type OwnerID uint64

// LineContext is the metadata recorded for every buffered line.
type LineContext struct {
	Level     string    // Level name the line was logged at
	Rank      int       // Numeric rank of Level
	Timestamp time.Time // Arrival time, non-decreasing across the ring
	Sequence  uint64    // Position within the level's LineStore
	Written   bool      // Set once the backend accepted the line
	Expired   bool      // Set once the line was deleted or evicted
	Owner     OwnerID   // Manager holding the line's LineStore
}

// Line is a single buffered log line.
type Line struct {
	ID      LineID
	Context LineContext
	Payload []interface{}

	// claimed is set while the flush engine is writing the line.
	claimed bool
}

// NewLine creates an unbuffered line. The timestamp is assigned by the Pool
// when the line is added unless one is supplied here.
func NewLine(level string, rank int, payload []interface{}) *Line {
	return &Line{
		Context: LineContext{
			Level: level,
			Rank:  rank,
		},
		Payload: payload,
	}
}

// live reports whether the line still holds a payload that may be written.
func (l *Line) live() bool {
	return !l.Context.Written && !l.Context.Expired
}

// release drops the payload and marks the line expired.
func (l *Line) release() {
	l.Payload = nil
	l.Context.Expired = true
	l.claimed = false
}

// Candidate is a point-in-time copy of a buffered line handed out by
// Manager.Snapshot. The payload slice is shared with the line and must be
// treated as read-only.
type Candidate struct {
	ID      LineID
	Context LineContext
	Payload []interface{}
}

// EvictReason says why a line left the buffer without being written.
type EvictReason int

const (
	// EvictCount is used when the ring overflowed its capacity
	EvictCount EvictReason = iota
	// EvictAge is used when the line was older than the configured maximum age
	EvictAge
	// EvictMemory is used by the low-memory backstop
	EvictMemory
	// EvictClear is used when the owning Manager was cleared
	EvictClear
)

// String returns the reason name used in metrics.
func (r EvictReason) String() string {
	switch r {
	case EvictCount:
		return "count"
	case EvictAge:
		return "age"
	case EvictMemory:
		return "memory"
	case EvictClear:
		return "clear"
	default:
		return "unknown"
	}
}

// EvictHook is called with the level of every line a Manager loses to
// eviction. It runs while the Pool lock is held and must not call back into
// the Pool.
type EvictHook func(level string, reason EvictReason)
