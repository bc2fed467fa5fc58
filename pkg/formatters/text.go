package formatters

import (
	"fmt"
	"strings"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// TextFormatter formats records as human-readable text
type TextFormatter struct {
	Options FormatOptions
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter() *TextFormatter {
	opts := DefaultFormatOptions()
	opts.LevelFormat = LevelFormatNameUpper
	return &TextFormatter{Options: opts}
}

// NewMessageFormatter creates a text formatter that writes only the message
// and fields. It suits lines that were formatted before they were logged.
func NewMessageFormatter() *TextFormatter {
	opts := DefaultFormatOptions()
	opts.IncludeTime = false
	opts.IncludeLevel = false
	return &TextFormatter{Options: opts}
}

// Format renders "[time] [LEVEL] message k=v ..." with fields sorted by key.
// Raw records pass through unchanged.
func (f *TextFormatter) Format(r types.Record) ([]byte, error) {
	if r.Raw != nil {
		return r.Raw, nil
	}

	var b strings.Builder
	if f.Options.IncludeTime {
		b.WriteByte('[')
		b.WriteString(formatTimestamp(r.Time, f.Options))
		b.WriteString("] ")
	}
	if f.Options.IncludeLevel {
		b.WriteByte('[')
		b.WriteString(formatLevel(r.Level, f.Options.LevelFormat))
		b.WriteString("] ")
	}
	if f.Options.IncludeHost && hostname != "" {
		b.WriteString(hostname)
		b.WriteByte(' ')
	}

	message := strings.TrimSuffix(r.Message(), "\n")
	b.WriteString(message)

	if fields := f.FormatFields(r.Fields); fields != "" {
		if message != "" {
			b.WriteByte(' ')
		}
		b.WriteString(fields)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// FormatFields formats fields as key=value pairs sorted by key
func (f *TextFormatter) FormatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		v := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(v, " \t\"=") {
			v = fmt.Sprintf("%q", v)
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}
