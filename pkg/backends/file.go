package backends

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// DefaultBufferSize for file operations
const DefaultBufferSize = 32 * 1024

// FileSink appends lines to a file. Every write holds an advisory flock so
// several processes can share one log file without interleaving lines.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	lock   *flock.Flock
	path   string
	size   int64
	stats  sinkStats
}

// NewFileSink opens path for appending, creating parent directories.
func NewFileSink(path string) (*FileSink, error) {
	cleanPath := filepath.Clean(path)

	// #nosec G301 - log directories need to be accessible by other processes
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}

	file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // #nosec G302 - log files need to be readable
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cleanPath)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "stat %s", cleanPath)
	}

	return &FileSink{
		file:   file,
		writer: bufio.NewWriterSize(file, DefaultBufferSize),
		lock:   flock.New(cleanPath),
		path:   cleanPath,
		size:   info.Size(),
	}, nil
}

// Write appends entry. The line is flushed to the file while the lock is
// held so it lands whole.
func (fs *FileSink) Write(entry []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.file == nil {
		return 0, os.ErrClosed
	}

	start := time.Now()
	if err := fs.lock.Lock(); err != nil {
		err = errors.Wrap(err, "acquire file lock")
		fs.stats.record(0, err, 0)
		return 0, err
	}
	defer func() {
		_ = fs.lock.Unlock()
	}()

	n, err := fs.writer.Write(entry)
	if err == nil {
		err = fs.writer.Flush()
	}
	fs.size += int64(n)
	fs.stats.record(n, err, time.Since(start))
	return n, err
}

// Flush flushes buffered data to the file.
func (fs *FileSink) Flush() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.writer == nil {
		return nil
	}
	return fs.writer.Flush()
}

// Sync flushes and fsyncs the file.
func (fs *FileSink) Sync() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.file == nil {
		return nil
	}
	if err := fs.writer.Flush(); err != nil {
		return err
	}
	return fs.file.Sync()
}

// Close flushes and closes the file. Closing twice is a no-op.
func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.file == nil {
		return nil
	}

	var errs []error
	if err := fs.writer.Flush(); err != nil {
		errs = append(errs, errors.Wrap(err, "flush"))
	}
	if err := fs.file.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close file"))
	}
	fs.file = nil
	fs.writer = nil

	if len(errs) > 0 {
		return errors.Errorf("close %s: %v", fs.path, errs)
	}
	return nil
}

// Path returns the file path
func (fs *FileSink) Path() string {
	return fs.path
}

// Size returns the file size including everything this sink appended.
func (fs *FileSink) Size() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.size
}

// Stats returns write statistics.
func (fs *FileSink) Stats() types.SinkStats {
	return fs.stats.snapshot()
}
