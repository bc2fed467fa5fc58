package formatters

import (
	"time"
)

// FormatOptions controls the output format
type FormatOptions struct {
	TimestampFormat string
	IncludeLevel    bool
	IncludeTime     bool
	LevelFormat     LevelFormat
	TimeZone        *time.Location
	FlattenFields   bool // Whether to put fields at the root of JSON output
	IncludeHost     bool // Whether to include a hostname field
}

// LevelFormat defines level format options
type LevelFormat int

const (
	// LevelFormatName formats levels as given ("info", "warn")
	LevelFormatName LevelFormat = iota
	// LevelFormatNameUpper formats levels as uppercase names
	LevelFormatNameUpper
	// LevelFormatNameLower formats levels as lowercase names
	LevelFormatNameLower
	// LevelFormatSymbol formats levels as single-character symbols
	LevelFormatSymbol
)

// DefaultFormatOptions returns default formatting options
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		TimestampFormat: time.RFC3339Nano,
		IncludeLevel:    true,
		IncludeTime:     true,
		LevelFormat:     LevelFormatName,
		TimeZone:        time.UTC,
	}
}
