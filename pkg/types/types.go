// Package types holds the values shared by formatters and sink-backed
// backends.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Record is a single line on its way to a sink. Args is the payload exactly
// as the call site passed it; Raw, when set, is written as-is.
type Record struct {
	Time   time.Time
	Level  string
	Fields map[string]interface{}
	Args   []interface{}
	Raw    []byte
}

// Message renders Args the way fmt.Sprintln does, without the newline:
// operands are always separated by a space.
func (r Record) Message() string {
	if len(r.Args) == 0 {
		return ""
	}
	if s, ok := r.Args[0].(string); ok && len(r.Args) == 1 {
		return s
	}
	return strings.TrimSuffix(fmt.Sprintln(r.Args...), "\n")
}

// Sink is a destination for formatted bytes.
type Sink interface {
	// Write writes one formatted line
	Write(p []byte) (int, error)

	// Flush pushes buffered data to the destination
	Flush() error

	// Close releases the sink
	Close() error
}

// Formatter turns a Record into bytes for a Sink.
type Formatter interface {
	Format(r Record) ([]byte, error)
}

// SinkStats represents statistics for a sink
type SinkStats struct {
	WriteCount     uint64
	BytesWritten   uint64
	ErrorCount     uint64
	LastError      time.Time
	TotalWriteTime time.Duration
	MaxWriteTime   time.Duration
}
