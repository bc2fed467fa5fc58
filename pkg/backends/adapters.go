package backends

import (
	"context"
	"log/slog"
	"sort"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// The adapters below let an existing structured logger act as a retrolog
// backend. Each implements WriteLevel and Child. Level names they do not know
// are logged at info.

func message(args []interface{}) string {
	return types.Record{Args: args}.Message()
}

func sortedFieldKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LogrusAdapter writes through a logrus entry.
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrus adapts l.
func NewLogrus(l *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{entry: logrus.NewEntry(l)}
}

// WriteLevel logs args at level. Entry.Log never exits, but it does panic at
// PanicLevel, so panic is logged as fatal.
func (a *LogrusAdapter) WriteLevel(level string, args ...interface{}) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if lvl == logrus.PanicLevel {
		lvl = logrus.FatalLevel
	}
	a.entry.Log(lvl, message(args))
	return nil
}

// Child returns an adapter carrying fields.
func (a *LogrusAdapter) Child(fields map[string]interface{}) interface{} {
	return &LogrusAdapter{entry: a.entry.WithFields(logrus.Fields(fields))}
}

// ZapAdapter writes through a zap logger.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZap adapts l.
func NewZap(l *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: l}
}

func zapLevel(level string) zapcore.Level {
	switch level {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error", "fatal", "panic":
		// zap exits or panics after writing at its fatal and panic levels.
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WriteLevel logs args at level. The original level name is kept in the
// "retrolog_level" field when zap has no exact equivalent.
func (a *ZapAdapter) WriteLevel(level string, args ...interface{}) error {
	lvl := zapLevel(level)
	ce := a.logger.Check(lvl, message(args))
	if ce == nil {
		return nil
	}
	if lvl.String() != level {
		ce.Write(zap.String("retrolog_level", level))
		return nil
	}
	ce.Write()
	return nil
}

// Child returns an adapter whose logger carries fields.
func (a *ZapAdapter) Child(fields map[string]interface{}) interface{} {
	zf := make([]zap.Field, 0, len(fields))
	for _, k := range sortedFieldKeys(fields) {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	return &ZapAdapter{logger: a.logger.With(zf...)}
}

// Sync flushes zap's buffered output.
func (a *ZapAdapter) Sync() error {
	return a.logger.Sync()
}

// ZerologAdapter writes through a zerolog logger.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerolog adapts l.
func NewZerolog(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: l}
}

// WriteLevel logs args at level. WithLevel never exits, even at fatal.
func (a *ZerologAdapter) WriteLevel(level string, args ...interface{}) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	a.logger.WithLevel(lvl).Msg(message(args))
	return nil
}

// Child returns an adapter whose logger carries fields.
func (a *ZerologAdapter) Child(fields map[string]interface{}) interface{} {
	return &ZerologAdapter{logger: a.logger.With().Fields(fields).Logger()}
}

// Slog levels for names slog does not define.
const (
	SlogLevelTrace = slog.Level(-8)
	SlogLevelFatal = slog.Level(12)
)

// SlogAdapter writes through a log/slog logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlog adapts l.
func NewSlog(l *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: l}
}

func slogLevel(level string) slog.Level {
	switch level {
	case "trace":
		return SlogLevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal", "panic":
		return SlogLevelFatal
	default:
		return slog.LevelInfo
	}
}

// WriteLevel logs args at level.
func (a *SlogAdapter) WriteLevel(level string, args ...interface{}) error {
	a.logger.Log(context.Background(), slogLevel(level), message(args))
	return nil
}

// Child returns an adapter whose logger carries fields as attributes.
func (a *SlogAdapter) Child(fields map[string]interface{}) interface{} {
	attrs := make([]any, 0, len(fields))
	for _, k := range sortedFieldKeys(fields) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return &SlogAdapter{logger: a.logger.With(attrs...)}
}
