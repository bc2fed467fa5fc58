package backends_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wayneeseguin/retrolog/pkg/backends"
)

type levelChildWriter interface {
	WriteLevel(level string, args ...interface{}) error
	Child(fields map[string]interface{}) interface{}
}

func decodeLines(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var m map[string]interface{}
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode %q: %v", data, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogrusAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.TraceLevel)

	var a levelChildWriter = backends.NewLogrus(l)
	a.WriteLevel("debug", "cache", "miss")
	a.Child(map[string]interface{}{"req": "r1"}).(levelChildWriter).WriteLevel("fatal", "still running")
	a.WriteLevel("panic", "no panic")
	a.WriteLevel("custom", "unknown level")

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[0]["level"] != "debug" || lines[0]["msg"] != "cache miss" {
		t.Errorf("line 0 = %v", lines[0])
	}
	if lines[1]["level"] != "fatal" || lines[1]["req"] != "r1" {
		t.Errorf("line 1 = %v", lines[1])
	}
	if lines[2]["level"] != "fatal" {
		t.Errorf("line 2 = %v", lines[2])
	}
	if lines[3]["level"] != "info" {
		t.Errorf("line 3 = %v", lines[3])
	}
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var a levelChildWriter = backends.NewZap(zap.New(core))

	a.WriteLevel("warn", "slow", "query")
	a.Child(map[string]interface{}{"user": "u1"}).(levelChildWriter).WriteLevel("fatal", "survives")
	a.WriteLevel("trace", "kept at debug")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[0].Message != "slow query" {
		t.Errorf("entry 0 = %+v", entries[0].Entry)
	}
	ctx := entries[1].ContextMap()
	if entries[1].Level != zapcore.ErrorLevel || ctx["user"] != "u1" || ctx["retrolog_level"] != "fatal" {
		t.Errorf("entry 1 = %+v %v", entries[1].Entry, ctx)
	}
	if entries[2].Level != zapcore.DebugLevel || entries[2].ContextMap()["retrolog_level"] != "trace" {
		t.Errorf("entry 2 = %+v", entries[2].Entry)
	}
}

func TestZerologAdapter(t *testing.T) {
	var buf bytes.Buffer
	var a levelChildWriter = backends.NewZerolog(zerolog.New(&buf).Level(zerolog.TraceLevel))

	a.WriteLevel("trace", "deep")
	a.Child(map[string]interface{}{"job": 7}).(levelChildWriter).WriteLevel("fatal", "no exit")
	a.WriteLevel("", "blank level")

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0]["level"] != "trace" || lines[0]["message"] != "deep" {
		t.Errorf("line 0 = %v", lines[0])
	}
	if lines[1]["level"] != "fatal" || lines[1]["job"] != float64(7) {
		t.Errorf("line 1 = %v", lines[1])
	}
	if lines[2]["level"] != "info" {
		t.Errorf("line 2 = %v", lines[2])
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: backends.SlogLevelTrace})
	var a levelChildWriter = backends.NewSlog(slog.New(h))

	a.WriteLevel("trace", "t")
	a.Child(map[string]interface{}{"b": 2, "a": 1}).(levelChildWriter).WriteLevel("error", "e")

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["level"] != "DEBUG-4" {
		t.Errorf("line 0 level = %v", lines[0]["level"])
	}
	if lines[1]["level"] != "ERROR" || lines[1]["a"] != float64(1) || lines[1]["b"] != float64(2) {
		t.Errorf("line 1 = %v", lines[1])
	}
}
