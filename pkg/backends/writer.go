package backends

import (
	"bufio"
	"io"
	"sync"
	"time"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// WriterSink adapts an io.Writer. Writes are serialized; Flush calls the
// writer's Flush or Sync method when it has one.
type WriterSink struct {
	mu      sync.Mutex
	w       io.Writer
	noClose bool
	stats   sinkStats
}

// NewWriterSink wraps w. Close closes w if it is an io.Closer.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// NewStreamSink wraps a process stream such as os.Stdout. Close flushes but
// never closes the stream.
func NewStreamSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, noClose: true}
}

// Write writes p in one call to the underlying writer.
func (s *WriterSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	n, err := s.w.Write(p)
	s.stats.record(n, err, time.Since(start))
	return n, err
}

// Flush flushes the underlying writer if it buffers.
func (s *WriterSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flushWriter(s.w)
}

// Close flushes and, unless the sink wraps a stream, closes the writer.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := flushWriter(s.w); err != nil {
		return err
	}
	if c, ok := s.w.(io.Closer); ok && !s.noClose {
		return c.Close()
	}
	return nil
}

// Stats returns write statistics.
func (s *WriterSink) Stats() types.SinkStats {
	return s.stats.snapshot()
}

func flushWriter(w io.Writer) error {
	switch f := w.(type) {
	case *bufio.Writer:
		return f.Flush()
	case interface{ Flush() error }:
		return f.Flush()
	case Syncer:
		// Syncing a terminal or pipe fails with EINVAL; that is not a flush error.
		_ = f.Sync()
	}
	return nil
}
