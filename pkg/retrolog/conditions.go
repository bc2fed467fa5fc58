package retrolog

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/retrolog/internal/buffer"
)

// Metadata describes a buffered line to a Predicate.
type Metadata struct {
	Level     string
	Rank      int
	Timestamp time.Time
	Sequence  uint64                 // Per-level sequence within the instance
	Fields    map[string]interface{} // Fields of the instance that logged the line
}

// Predicate decides whether a line is written. An error leaves the line
// buffered and is reported on the diagnostic channel.
type Predicate func(meta Metadata, payload []interface{}) (bool, error)

// Condition builds the Predicate for one Logger instance. It is called once
// for the root and once for every child, so state captured by the returned
// Predicate, such as a counter, is per instance.
type Condition func(l *Logger) Predicate

// DynamicLevelFunc returns the effective write level for a line.
type DynamicLevelFunc func(meta Metadata, payload []interface{}) string

// DumpOnError returns a Predicate that, when it sees a line ranked at or
// above "error", starts a flush of every buffered line of l ranked at or
// above cutoff. The flush runs in the background; use Sync to wait for it.
// The Predicate always approves the line itself.
//
// The flush is queued before the Predicate returns, so the lines buffered
// before the error are written ahead of the error line.
func DumpOnError(l *Logger, cutoff string) Predicate {
	return func(meta Metadata, _ []interface{}) (bool, error) {
		if meta.Rank >= l.errorRank {
			if err := l.FlushAsync(cutoff, nil); err != nil {
				l.logError("dump", meta.Level, "dump on error not started", err, ErrorLevelMedium)
			}
		}
		return true, nil
	}
}

// OnEveryNth returns a Predicate that approves the first of every n lines it
// is asked about, plus any line already at or above l's write level. Each
// call returns a Predicate with its own counter. n <= 1 approves every line.
func OnEveryNth(l *Logger, n int) Predicate {
	var counter atomic.Uint64
	return func(meta Metadata, _ []interface{}) (bool, error) {
		c := counter.Add(1)
		if n <= 1 {
			return true, nil
		}
		return c%uint64(n) == 1 || meta.Rank >= l.threshold, nil
	}
}

// OnDynamicLevel returns a Predicate that approves a line ranked at or above
// the level getLevel returns for it. An unknown level is an error.
func OnDynamicLevel(l *Logger, getLevel DynamicLevelFunc) Predicate {
	return func(meta Metadata, payload []interface{}) (bool, error) {
		level := getLevel(meta, payload)
		rank, err := l.levels.rankOf(level)
		if err != nil {
			return false, errors.Wrap(err, "dynamic level")
		}
		return meta.Rank >= rank, nil
	}
}

// BindDumpOnError is the Condition form of DumpOnError.
func BindDumpOnError(cutoff string) Condition {
	return func(l *Logger) Predicate { return DumpOnError(l, cutoff) }
}

// BindEveryNth is the Condition form of OnEveryNth.
func BindEveryNth(n int) Condition {
	return func(l *Logger) Predicate { return OnEveryNth(l, n) }
}

// BindDynamicLevel is the Condition form of OnDynamicLevel.
func BindDynamicLevel(getLevel DynamicLevelFunc) Condition {
	return func(l *Logger) Predicate { return OnDynamicLevel(l, getLevel) }
}

func (l *Logger) metadata(c buffer.Candidate) Metadata {
	return Metadata{
		Level:     c.Context.Level,
		Rank:      c.Context.Rank,
		Timestamp: c.Context.Timestamp,
		Sequence:  c.Context.Sequence,
		Fields:    l.fields,
	}
}

// evaluate runs pred, turning a panic into an error. A nil pred approves.
func (l *Logger) evaluate(pred Predicate, meta Metadata, payload []interface{}) (ok bool, err error) {
	if pred == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("predicate panic: %v", r)
		}
	}()
	return pred(meta, payload)
}
