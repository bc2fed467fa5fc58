package main

import (
	"regexp"
	"strings"

	"github.com/wayneeseguin/retrolog/pkg/retrolog"
)

// levelRegex detects log levels in common formats like [ERROR], level=error, etc.
var levelRegex = regexp.MustCompile(`(?i)\b(TRACE|DEBUG|INFO|WARN(?:ING)?|ERR(?:OR)?|FATAL|PANIC|CRITICAL)\b`)

// levelKeywords maps a detected keyword to a retrolog level name.
var levelKeywords = map[string]string{
	"TRACE":    retrolog.LevelTrace,
	"DEBUG":    retrolog.LevelDebug,
	"INFO":     retrolog.LevelInfo,
	"WARN":     retrolog.LevelWarn,
	"WARNING":  retrolog.LevelWarn,
	"ERR":      retrolog.LevelError,
	"ERROR":    retrolog.LevelError,
	"FATAL":    retrolog.LevelFatal,
	"PANIC":    retrolog.LevelFatal,
	"CRITICAL": retrolog.LevelFatal,
}

// detectLevel returns the level of the first level keyword in line, or def.
func detectLevel(line, def string) string {
	match := levelRegex.FindString(line)
	if match == "" {
		return def
	}
	if level, ok := levelKeywords[strings.ToUpper(match)]; ok {
		return level
	}
	return def
}
