package retrolog

import (
	"time"
)

// Option is a functional option for configuring a Logger
type Option func(*Config) error

// WithWriteLevel sets the level at or above which lines are written at intake
func WithWriteLevel(level string) Option {
	return func(c *Config) error {
		if level == "" {
			return configError("WriteLevel", "cannot be empty", nil)
		}
		c.WriteLevel = level
		return nil
	}
}

// WithLevels replaces the level table
func WithLevels(levels Levels) Option {
	return func(c *Config) error {
		if err := levels.Validate(); err != nil {
			return configError("Levels", "invalid level table", err)
		}
		c.Levels = levels.clone()
		return nil
	}
}

// WithLineLimits sets the buffer bounds
func WithLineLimits(limits LineLimits) Option {
	return func(c *Config) error {
		c.LineLimits = limits
		return nil
	}
}

// WithMaxLines sets only the ring capacity
func WithMaxLines(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return configError("LineLimits.MaxCount", "must be positive", nil)
		}
		c.LineLimits.MaxCount = n
		return nil
	}
}

// WithMaxLineAge sets only the buffered line age limit
func WithMaxLineAge(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return configError("LineLimits.MaxAge", "must not be negative", nil)
		}
		c.LineLimits.MaxAge = d
		return nil
	}
}

// WithInstanceLimits sets the child instance cache bounds
func WithInstanceLimits(limits InstanceLimits) Option {
	return func(c *Config) error {
		c.InstanceLimits = limits
		return nil
	}
}

// WithPerLineFields sets the fields that identify a child instance
func WithPerLineFields(fields ...string) Option {
	return func(c *Config) error {
		c.PerLineFields = append([]string(nil), fields...)
		return nil
	}
}

// WithCondition sets the intake write condition
func WithCondition(cond Condition) Option {
	return func(c *Config) error {
		c.Condition = cond
		return nil
	}
}

// WithHub makes the Logger share h's ring and instance cache
func WithHub(h *Hub) Option {
	return func(c *Config) error {
		if h == nil {
			return configError("Hub", "cannot be nil", nil)
		}
		c.Hub = h
		return nil
	}
}

// WithErrorHandler sets the diagnostic error handler
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *Config) error {
		c.ErrorHandler = handler
		return nil
	}
}

// WithFlushBatchSize sets how many lines a flush processes between yields
func WithFlushBatchSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return configError("FlushBatchSize", "must be positive", nil)
		}
		c.FlushBatchSize = n
		return nil
	}
}

// WithCleanupInterval sets the Hub maintenance period; 0 disables it
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return configError("CleanupInterval", "must not be negative", nil)
		}
		c.CleanupInterval = d
		return nil
	}
}
