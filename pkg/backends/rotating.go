package backends

import (
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// RotateOptions configures a RotatingSink. Sizes are in megabytes and ages in
// days, as lumberjack expects.
type RotateOptions struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	LocalTime  bool
}

// RotatingSink writes to a size-rotated file.
type RotatingSink struct {
	mu    sync.Mutex
	out   *lumberjack.Logger
	stats sinkStats
}

// NewRotatingSink creates a sink that rotates opts.Filename. The file is
// opened lazily on the first write.
func NewRotatingSink(opts RotateOptions) *RotatingSink {
	return &RotatingSink{
		out: &lumberjack.Logger{
			Filename:   opts.Filename,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
			LocalTime:  opts.LocalTime,
		},
	}
}

// Write writes p, rotating first if it would overflow the current file.
func (s *RotatingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	n, err := s.out.Write(p)
	s.stats.record(n, err, time.Since(start))
	return n, err
}

// Flush is a no-op; lumberjack does not buffer.
func (s *RotatingSink) Flush() error {
	return nil
}

// Rotate closes the current file and starts a new one.
func (s *RotatingSink) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Rotate()
}

// Close closes the current file.
func (s *RotatingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}

// Stats returns write statistics.
func (s *RotatingSink) Stats() types.SinkStats {
	return s.stats.snapshot()
}
