package retrolog

import (
	"time"
)

// Defaults used by DefaultConfig.
const (
	DefaultWriteLevel      = LevelInfo
	DefaultMaxLines        = 10000
	DefaultMaxLineAge      = 10 * time.Minute
	DefaultMaxInstances    = 1000
	DefaultInstanceMaxAge  = 30 * time.Minute
	DefaultFlushBatchSize  = 10
	DefaultCleanupInterval = 30 * time.Second
)

// LineLimits bounds the buffered lines of every Logger sharing a Hub.
type LineLimits struct {
	MaxAge   time.Duration // Lines older than this are evicted on trim; 0 disables
	MaxCount int           // Ring capacity: total buffered lines across all levels

	// Memory backstop. When ReservedBytes is non-zero and the available
	// headroom times FreeMemoryFraction drops below it, the oldest
	// buffered lines are evicted in batches of 200 regardless of age.
	MaxBytes           uint64  // Logical memory bound for the headroom probe; 0 uses the Go runtime limit
	ReservedBytes      uint64  // Headroom to keep free; 0 disables the backstop
	FreeMemoryFraction float64 // Share of headroom considered usable, in (0, 1]
}

// InstanceLimits bounds the child Loggers a Hub keeps in its instance cache.
type InstanceLimits struct {
	MaxAge  time.Duration // Idle time after which a child is torn down; 0 disables
	MaxSize int           // Most children kept; 0 disables caching
}

// Config contains all configuration options for a Logger.
// It is resolved once by New and treated as immutable afterwards; children
// share their root's Config.
type Config struct {
	// Core settings
	WriteLevel string // Lines at or above this level are written at intake
	Levels     Levels // Level table; nil selects DefaultLevels

	// Buffer and instance bounds
	LineLimits     LineLimits
	InstanceLimits InstanceLimits

	// PerLineFields names the fields that identify a child instance. With
	// lists them empty means every field counts.
	PerLineFields []string

	// Flush settings
	FlushBatchSize  int           // Lines processed between cooperative yields
	CleanupInterval time.Duration // Hub maintenance period; 0 disables the loop

	// Condition decides whether a line at or above WriteLevel is written at
	// intake. It is bound separately to every instance. Nil writes always.
	Condition Condition

	// Error handling
	ErrorHandler ErrorHandler

	// Hub shares the ring and instance cache with other Loggers. Nil gives
	// the Logger a private Hub built from this Config.
	Hub *Hub
}

// DefaultConfig returns a Config with defaults, overridden by the
// RETROLOG_WRITE_LEVEL, RETROLOG_MAX_LINES, RETROLOG_MAX_LINE_AGE and
// RETROLOG_MAX_INSTANCES environment variables.
//
// Returns:
//   - *Config: A configuration with default values
//
// Example:
//
//	config := retrolog.DefaultConfig()
//	config.WriteLevel = retrolog.LevelWarn
//	logger, err := retrolog.NewWithConfig(backend, config)
func DefaultConfig() *Config {
	return &Config{
		WriteLevel: envString(EnvWriteLevel, DefaultWriteLevel),
		Levels:     DefaultLevels(),
		LineLimits: LineLimits{
			MaxAge:             envDuration(EnvMaxLineAge, DefaultMaxLineAge),
			MaxCount:           envPositiveInt(EnvMaxLines, DefaultMaxLines),
			FreeMemoryFraction: 1.0,
		},
		InstanceLimits: InstanceLimits{
			MaxAge:  DefaultInstanceMaxAge,
			MaxSize: envPositiveInt(EnvMaxInstances, DefaultMaxInstances),
		},
		FlushBatchSize:  DefaultFlushBatchSize,
		CleanupInterval: DefaultCleanupInterval,
		ErrorHandler:    getDefaultErrorHandler(),
	}
}

// Validate checks the configuration and fills in defaults for zero values.
// It is called by NewWithConfig.
//
// Returns:
//   - error: a *ConfigurationError describing the first problem found
func (c *Config) Validate() error {
	if c.Levels == nil {
		c.Levels = DefaultLevels()
	}
	if err := c.Levels.Validate(); err != nil {
		return configError("Levels", "invalid level table", err)
	}

	if c.WriteLevel == "" {
		c.WriteLevel = DefaultWriteLevel
	}
	if _, err := c.Levels.rankOf(c.WriteLevel); err != nil {
		return configError("WriteLevel", "not in the level table", err)
	}

	if c.LineLimits.MaxCount < 0 {
		return configError("LineLimits.MaxCount", "must not be negative", nil)
	}
	if c.LineLimits.MaxCount == 0 {
		c.LineLimits.MaxCount = DefaultMaxLines
	}
	if c.LineLimits.MaxAge < 0 {
		return configError("LineLimits.MaxAge", "must not be negative", nil)
	}
	if c.LineLimits.FreeMemoryFraction == 0 {
		c.LineLimits.FreeMemoryFraction = 1.0
	}
	if c.LineLimits.FreeMemoryFraction < 0 || c.LineLimits.FreeMemoryFraction > 1 {
		return configError("LineLimits.FreeMemoryFraction", "must be in (0, 1]", nil)
	}

	if c.InstanceLimits.MaxSize < 0 {
		return configError("InstanceLimits.MaxSize", "must not be negative", nil)
	}
	if c.InstanceLimits.MaxAge < 0 {
		return configError("InstanceLimits.MaxAge", "must not be negative", nil)
	}

	if c.FlushBatchSize <= 0 {
		c.FlushBatchSize = DefaultFlushBatchSize
	}
	if c.CleanupInterval < 0 {
		return configError("CleanupInterval", "must not be negative", nil)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = getDefaultErrorHandler()
	}
	return nil
}

// clone returns a copy whose slices and maps are not shared with c.
func (c *Config) clone() *Config {
	out := *c
	out.Levels = c.Levels.clone()
	out.PerLineFields = append([]string(nil), c.PerLineFields...)
	return &out
}
