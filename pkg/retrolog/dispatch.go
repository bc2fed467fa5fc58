package retrolog

import (
	"github.com/pkg/errors"
)

// LevelWriter is a backend that accepts any level name.
type LevelWriter interface {
	WriteLevel(level string, args ...interface{}) error
}

// LevelWriterFunc adapts a function to LevelWriter.
type LevelWriterFunc func(level string, args ...interface{}) error

// WriteLevel calls f.
func (f LevelWriterFunc) WriteLevel(level string, args ...interface{}) error {
	return f(level, args...)
}

// ChildCreator is implemented by backends that can derive a child carrying
// extra fields. The child must itself be a valid backend.
type ChildCreator interface {
	Child(fields map[string]interface{}) interface{}
}

// Per-level method backends. A backend without LevelWriter must implement
// at least Debug, Info, Warn and Error.
type (
	TraceLogger interface{ Trace(args ...interface{}) }
	DebugLogger interface{ Debug(args ...interface{}) }
	InfoLogger  interface{ Info(args ...interface{}) }
	WarnLogger  interface{ Warn(args ...interface{}) }
	ErrorLogger interface{ Error(args ...interface{}) }
	FatalLogger interface{ Fatal(args ...interface{}) }
)

// requiredMethods are the level methods every method backend must have.
var requiredMethods = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

type writeFunc func(args []interface{}) error

// dispatchTable maps every level in the table to the backend call that
// writes it. It is built once per backend and never inspects the backend
// again.
type dispatchTable struct {
	backend interface{}
	writers map[string]writeFunc
}

func newDispatchTable(backend interface{}, levels Levels) (*dispatchTable, error) {
	if backend == nil {
		return nil, configError("backend", "cannot be nil", nil)
	}

	d := &dispatchTable{backend: backend, writers: make(map[string]writeFunc, len(levels))}

	if lw, ok := backend.(LevelWriter); ok {
		for name := range levels {
			level := name
			d.writers[level] = func(args []interface{}) error {
				return lw.WriteLevel(level, args...)
			}
		}
		return d, nil
	}

	methods := levelMethods(backend)
	for _, name := range requiredMethods {
		if _, ok := methods[name]; !ok {
			return nil, configError("backend", "method "+name+" not implemented", ErrMissingLevelMethod)
		}
	}

	// Levels without a method of their own fall back to the nearest
	// lower-ranked level that has one, then the nearest higher-ranked.
	names := levels.Names()
	for i, name := range names {
		if fn, ok := methods[name]; ok {
			d.writers[name] = fn
			continue
		}
		if fn := nearestMethod(methods, names, i); fn != nil {
			d.writers[name] = fn
		}
	}
	return d, nil
}

func levelMethods(backend interface{}) map[string]writeFunc {
	methods := make(map[string]writeFunc, 6)
	if b, ok := backend.(TraceLogger); ok {
		methods[LevelTrace] = func(args []interface{}) error { b.Trace(args...); return nil }
	}
	if b, ok := backend.(DebugLogger); ok {
		methods[LevelDebug] = func(args []interface{}) error { b.Debug(args...); return nil }
	}
	if b, ok := backend.(InfoLogger); ok {
		methods[LevelInfo] = func(args []interface{}) error { b.Info(args...); return nil }
	}
	if b, ok := backend.(WarnLogger); ok {
		methods[LevelWarn] = func(args []interface{}) error { b.Warn(args...); return nil }
	}
	if b, ok := backend.(ErrorLogger); ok {
		methods[LevelError] = func(args []interface{}) error { b.Error(args...); return nil }
	}
	if b, ok := backend.(FatalLogger); ok {
		methods[LevelFatal] = func(args []interface{}) error { b.Fatal(args...); return nil }
	}
	return methods
}

func nearestMethod(methods map[string]writeFunc, names []string, i int) writeFunc {
	for j := i - 1; j >= 0; j-- {
		if fn, ok := methods[names[j]]; ok {
			return fn
		}
	}
	for j := i + 1; j < len(names); j++ {
		if fn, ok := methods[names[j]]; ok {
			return fn
		}
	}
	return nil
}

// write calls the backend once for level. A panicking backend is reported
// as ErrBackendPanic.
func (d *dispatchTable) write(level string, args []interface{}) (err error) {
	fn, ok := d.writers[level]
	if !ok {
		return errors.Wrapf(ErrUnknownLevel, "%q", level)
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrBackendPanic, "%v", r)
		}
	}()
	return fn(args)
}

// child derives a dispatch table for a child backend, or returns d when the
// backend cannot create children.
func (d *dispatchTable) child(fields map[string]interface{}, levels Levels) (*dispatchTable, error) {
	cc, ok := d.backend.(ChildCreator)
	if !ok {
		return d, nil
	}
	backend := cc.Child(fields)
	if backend == nil {
		return d, nil
	}
	return newDispatchTable(backend, levels)
}
