package retrolog

import (
	"runtime"

	"github.com/wayneeseguin/retrolog/internal/buffer"
)

// WriteIf writes the buffered lines of this instance ranked at or above
// cutoff, oldest first, for which pred returns true. A nil pred writes them
// all. Lines that pred rejects, or whose write fails, stay buffered.
//
// Calls on the same instance run one at a time in call order. Lines are
// processed FlushBatchSize at a time with a yield between batches, so a
// large flush does not monopolize a processor.
//
// Parameters:
//   - cutoff: The lowest level considered
//   - pred: Optional per-line filter
//
// Returns:
//   - int: Number of lines written
//   - error: ErrUnknownLevel for an unknown cutoff, ErrLoggerClosed after Close
//
// Example:
//
//	// Persist everything captured for a failed request.
//	if _, err := logger.WriteIf(retrolog.LevelTrace, nil); err != nil {
//		return err
//	}
func (l *Logger) WriteIf(cutoff string, pred Predicate) (int, error) {
	minRank, err := l.flushPrecheck(cutoff)
	if err != nil {
		return 0, err
	}
	l.flushLock.Lock()
	defer l.flushLock.Unlock()
	return l.flushLocked(minRank, pred), nil
}

// FlushAsync queues a WriteIf and returns without waiting for it. Queued
// flushes run in the order FlushAsync was called, before any flush or
// conditional write requested later. Sync waits for them.
func (l *Logger) FlushAsync(cutoff string, pred Predicate) error {
	minRank, err := l.flushPrecheck(cutoff)
	if err != nil {
		return err
	}
	l.lifecycle.RLock()
	if l.closed.Load() {
		l.lifecycle.RUnlock()
		return ErrLoggerClosed
	}
	t := l.flushLock.Reserve()
	l.pending.Add(1)
	l.lifecycle.RUnlock()

	go func() {
		defer l.pending.Done()
		l.flushLock.Wait(t)
		defer l.flushLock.Unlock()
		l.flushLocked(minRank, pred)
	}()
	return nil
}

// Sync waits for every flush queued with FlushAsync, including the ones
// DumpOnError starts.
func (l *Logger) Sync() {
	l.pending.Wait()
}

func (l *Logger) flushPrecheck(cutoff string) (int, error) {
	if l.closed.Load() {
		return 0, ErrLoggerClosed
	}
	return l.levels.rankOf(cutoff)
}

// flushLocked runs with the flush lock held.
func (l *Logger) flushLocked(minRank int, pred Predicate) int {
	candidates := l.buf.Snapshot(minRank)
	batch := l.config.FlushBatchSize
	written := 0

	for i, c := range candidates {
		if i > 0 && i%batch == 0 {
			runtime.Gosched()
		}

		ok, err := l.evaluate(pred, l.metadata(c), c.Payload)
		if err != nil {
			l.logError("flush", c.Context.Level, "flush predicate failed, line kept", err, ErrorLevelMedium)
			continue
		}
		if !ok {
			continue
		}
		if l.writeCandidate(c) {
			written++
		}
	}

	l.metricsCollector.TrackFlush()
	return written
}

// writeCandidate claims a buffered line, writes it and deletes it. A line
// that another flush already took, or that was evicted, is skipped.
func (l *Logger) writeCandidate(c buffer.Candidate) bool {
	payload, ok := l.buf.Claim(c.ID)
	if !ok {
		return false
	}
	return l.writeClaimed(c.ID, c.Context.Level, payload)
}

// writeClaimed writes a claimed line. A line whose write fails is returned
// to the buffer.
func (l *Logger) writeClaimed(id buffer.LineID, level string, payload []interface{}) bool {
	if err := l.timedWrite(level, payload); err != nil {
		l.buf.Unclaim(id)
		l.logError("write", level, "backend write failed, line kept", err, ErrorLevelMedium)
		return false
	}
	l.buf.Complete(id)
	l.metricsCollector.TrackLineWritten(level)
	return true
}
