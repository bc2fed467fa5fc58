package formatters

import (
	"encoding/json"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// JSONFormatter formats records as line-delimited JSON
type JSONFormatter struct {
	Options       FormatOptions
	IncludeFields []string // Optional: specific fields to include
	ExcludeFields []string // Optional: fields to exclude
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		Options: DefaultFormatOptions(),
	}
}

// Format formats a record as a single JSON object followed by a newline.
// Raw records pass through unchanged.
func (f *JSONFormatter) Format(r types.Record) ([]byte, error) {
	if r.Raw != nil {
		return r.Raw, nil
	}

	entry := make(map[string]interface{}, 4+len(r.Fields))
	if f.Options.IncludeTime {
		entry["timestamp"] = formatTimestamp(r.Time, f.Options)
	}
	if f.Options.IncludeLevel {
		entry["level"] = formatLevel(r.Level, f.Options.LevelFormat)
	}
	if f.Options.IncludeHost && hostname != "" {
		entry["host"] = hostname
	}
	entry["message"] = r.Message()

	if fields := f.filterFields(r.Fields); len(fields) > 0 {
		if f.Options.FlattenFields {
			for k, v := range fields {
				if _, taken := entry[k]; !taken {
					entry[k] = v
				}
			}
		} else {
			entry["fields"] = fields
		}
	}

	data, err := f.safeMarshal(entry)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (f *JSONFormatter) filterFields(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if !f.shouldExcludeField(k) {
			out[k] = v
		}
	}
	return out
}

// shouldExcludeField checks if a field should be excluded from output
func (f *JSONFormatter) shouldExcludeField(field string) bool {
	for _, excluded := range f.ExcludeFields {
		if field == excluded {
			return true
		}
	}

	if len(f.IncludeFields) > 0 {
		for _, included := range f.IncludeFields {
			if field == included {
				return false
			}
		}
		return true
	}

	return false
}

// WithIncludeFields sets fields to include in JSON output
func (f *JSONFormatter) WithIncludeFields(fields ...string) *JSONFormatter {
	f.IncludeFields = fields
	return f
}

// WithExcludeFields sets fields to exclude from JSON output
func (f *JSONFormatter) WithExcludeFields(fields ...string) *JSONFormatter {
	f.ExcludeFields = fields
	return f
}

// safeMarshal marshals entry, retrying with a sanitized copy when a field
// value cannot be encoded directly.
func (f *JSONFormatter) safeMarshal(entry map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err == nil {
		return data, nil
	}
	return json.Marshal(safeFields(entry))
}
