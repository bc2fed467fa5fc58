package backends

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/retrolog/pkg/formatters"
	"github.com/wayneeseguin/retrolog/pkg/types"
)

// ErrClosed is returned by a Logger whose sink was closed.
var ErrClosed = errors.New("backend closed")

// Logger formats lines and writes them to a Sink. It accepts any level name
// and is the backend retrolog's CLI wires to its sinks. Children share the
// parent's sink and formatter and add their own fields.
type Logger struct {
	sink      Sink
	formatter types.Formatter
	fields    map[string]interface{}
	now       func() time.Time
	closed    *atomic.Bool
}

// NewLogger creates a Logger. A nil formatter selects the text formatter.
func NewLogger(sink Sink, formatter types.Formatter) *Logger {
	if formatter == nil {
		formatter = formatters.NewTextFormatter()
	}
	return &Logger{
		sink:      sink,
		formatter: formatter,
		now:       time.Now,
		closed:    new(atomic.Bool),
	}
}

// WriteLevel formats args as one record at level and writes it.
func (l *Logger) WriteLevel(level string, args ...interface{}) error {
	if l.closed.Load() {
		return ErrClosed
	}
	data, err := l.formatter.Format(types.Record{
		Time:   l.now(),
		Level:  level,
		Fields: l.fields,
		Args:   args,
	})
	if err != nil {
		return errors.Wrap(err, "format")
	}
	if _, err := l.sink.Write(data); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}

// WriteRaw writes an already formatted line.
func (l *Logger) WriteRaw(level string, line []byte) error {
	if l.closed.Load() {
		return ErrClosed
	}
	data, err := l.formatter.Format(types.Record{Time: l.now(), Level: level, Raw: line})
	if err != nil {
		return errors.Wrap(err, "format")
	}
	_, err = l.sink.Write(data)
	return errors.Wrap(err, "write")
}

// Child returns a Logger writing to the same sink with fields merged over
// the parent's.
func (l *Logger) Child(fields map[string]interface{}) interface{} {
	return l.With(fields)
}

// With is the typed form of Child.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

// Fields returns the fields added to every line.
func (l *Logger) Fields() map[string]interface{} {
	return l.fields
}

// Flush flushes the sink.
func (l *Logger) Flush() error {
	return l.sink.Flush()
}

// Close closes the sink. Children share the sink, so closing any of them
// closes all of them.
func (l *Logger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.sink.Close()
}
