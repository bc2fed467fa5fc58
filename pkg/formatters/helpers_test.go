package formatters

import (
	"testing"
	"time"
)

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level  string
		format LevelFormat
		want   string
	}{
		{"info", LevelFormatName, "info"},
		{"info", LevelFormatNameUpper, "INFO"},
		{"WARN", LevelFormatNameLower, "warn"},
		{"debug", LevelFormatSymbol, "D"},
		{"", LevelFormatSymbol, ""},
	}
	for _, tt := range tests {
		if got := formatLevel(tt.level, tt.format); got != tt.want {
			t.Errorf("formatLevel(%q, %d) = %q, want %q", tt.level, tt.format, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	opts := FormatOptions{TimestampFormat: "15:04:05", TimeZone: time.UTC}
	if got := formatTimestamp(ts, opts); got != "03:04:05" {
		t.Errorf("formatTimestamp() = %q", got)
	}
	if got := formatTimestamp(ts, FormatOptions{}); got != "2024-01-02T03:04:05Z" {
		t.Errorf("formatTimestamp() default = %q", got)
	}
}

func TestSafeFields(t *testing.T) {
	type inner struct {
		Name    string
		private int
	}
	var nilPtr *inner

	got := safeFields(map[string]interface{}{
		"struct": inner{Name: "n", private: 1},
		"nil":    nilPtr,
		"fn":     func() {},
		"bytes":  []byte("b"),
	})

	s, ok := got["struct"].(map[string]interface{})
	if !ok || s["Name"] != "n" || len(s) != 1 {
		t.Errorf("struct = %v", got["struct"])
	}
	if got["nil"] != nil {
		t.Errorf("nil = %v", got["nil"])
	}
	if got["fn"] != "[func]" {
		t.Errorf("fn = %v", got["fn"])
	}
	if safeFields(nil) != nil {
		t.Error("safeFields(nil) should be nil")
	}
}
