package backends

import (
	"sync"
	"time"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// Sink is the destination a Logger writes formatted lines to.
type Sink = types.Sink

// Syncer is implemented by sinks that can commit to stable storage.
type Syncer interface {
	Sync() error
}

// StatsReporter is implemented by sinks that keep write statistics.
type StatsReporter interface {
	Stats() types.SinkStats
}

// sinkStats accumulates types.SinkStats for a sink.
type sinkStats struct {
	mu    sync.Mutex
	stats types.SinkStats
}

func (s *sinkStats) record(n int, err error, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stats.ErrorCount++
		s.stats.LastError = time.Now()
		return
	}
	s.stats.WriteCount++
	if n > 0 {
		s.stats.BytesWritten += uint64(n)
	}
	s.stats.TotalWriteTime += elapsed
	if elapsed > s.stats.MaxWriteTime {
		s.stats.MaxWriteTime = elapsed
	}
}

func (s *sinkStats) snapshot() types.SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
