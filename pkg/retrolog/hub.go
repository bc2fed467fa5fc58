package retrolog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wayneeseguin/retrolog/internal/buffer"
	"github.com/wayneeseguin/retrolog/internal/cache"
)

// Hub owns the state Loggers share: the ring of buffered lines, bounded by
// LineLimits, and the cache of child instances, bounded by InstanceLimits.
// A Logger created without WithHub gets a private Hub.
//
// While a Hub is open a background routine applies the line limits and
// expires idle children every CleanupInterval.
type Hub struct {
	pool      *buffer.Pool
	instances *cache.Cache[string, *Logger] // nil when InstanceLimits.MaxSize is 0
	limits    LineLimits

	errorHandler ErrorHandler

	// Maintenance routine
	cleanupInterval time.Duration
	cleanupTicker   *time.Ticker
	cleanupDone     chan struct{}
	cleanupWg       sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool
}

// MaintenanceStats reports what one Maintain pass removed.
type MaintenanceStats struct {
	Reclaimed        int // Ring slots of written or deleted lines freed
	Aged             int // Lines older than LineLimits.MaxAge
	MemoryEvicted    int // Lines dropped by the memory backstop
	InstancesExpired int // Children idle longer than InstanceLimits.MaxAge
}

// NewHub creates a Hub from DefaultConfig and options. Only the line limits,
// instance limits, cleanup interval and error handler apply.
//
// Example:
//
//	hub, err := retrolog.NewHub(retrolog.WithMaxLines(50000))
//	if err != nil {
//		return err
//	}
//	defer hub.Close()
//
//	api, _ := retrolog.New(apiBackend, retrolog.WithHub(hub))
//	jobs, _ := retrolog.New(jobBackend, retrolog.WithHub(hub))
func NewHub(options ...Option) (*Hub, error) {
	config := DefaultConfig()
	for _, opt := range options {
		if err := opt(config); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newHub(config), nil
}

func newHub(cfg *Config) *Hub {
	h := &Hub{
		pool:            buffer.NewPool(cfg.LineLimits.MaxCount),
		limits:          cfg.LineLimits,
		errorHandler:    cfg.ErrorHandler,
		cleanupInterval: cfg.CleanupInterval,
	}
	h.pool.SetMemoryLimit(cfg.LineLimits.MaxBytes)

	if cfg.InstanceLimits.MaxSize > 0 {
		h.instances = cache.New[string, *Logger](
			cfg.InstanceLimits.MaxSize,
			cfg.InstanceLimits.MaxAge,
			func(_ string, child *Logger, _ cache.Reason) {
				// A failed release leaves lines in the ring; the ring's own
				// eviction reclaims them.
				_ = child.teardown(context.Background())
			},
		)
	}

	h.startCleanupRoutine()
	return h
}

// Pool returns the shared line pool.
func (h *Hub) Pool() *buffer.Pool {
	return h.pool
}

// Instances returns the number of cached children.
func (h *Hub) Instances() int {
	if h.instances == nil {
		return 0
	}
	return h.instances.Len()
}

// Limits returns the line limits the hub enforces.
func (h *Hub) Limits() LineLimits {
	return h.limits
}

// SetClock replaces the time source of the pool and the instance cache.
// It is intended for tests.
func (h *Hub) SetClock(now func() time.Time) {
	h.pool.SetClock(now)
	if h.instances != nil {
		h.instances.SetClock(now)
	}
}

// Maintain applies every limit once: it reclaims written ring slots, evicts
// aged lines, runs the memory backstop and expires idle children.
func (h *Hub) Maintain() MaintenanceStats {
	stats := MaintenanceStats{
		Reclaimed:     h.pool.LimitByAlreadyWritten(),
		Aged:          h.pool.LimitByMaxAge(h.limits.MaxAge),
		MemoryEvicted: h.pool.LimitByMinFreeMemory(h.limits.ReservedBytes, h.limits.FreeMemoryFraction),
	}
	if h.instances != nil {
		stats.InstancesExpired = h.instances.Sweep()
	}
	return stats
}

func (h *Hub) startCleanupRoutine() {
	if h.cleanupInterval <= 0 {
		return
	}

	h.cleanupTicker = time.NewTicker(h.cleanupInterval)
	h.cleanupDone = make(chan struct{})

	h.cleanupWg.Add(1)
	go func() {
		defer h.cleanupWg.Done()
		defer func() {
			if p := recover(); p != nil && h.errorHandler != nil {
				h.errorHandler(LogError{
					Operation: "maintenance",
					Message:   "panic in maintenance routine",
					Err:       fmt.Errorf("%v", p),
					Severity:  ErrorLevelCritical,
					Timestamp: time.Now(),
				})
			}
		}()

		for {
			select {
			case <-h.cleanupTicker.C:
				h.Maintain()
			case <-h.cleanupDone:
				return
			}
		}
	}()
}

func (h *Hub) stopCleanupRoutine() {
	if h.cleanupTicker == nil {
		return
	}
	h.cleanupTicker.Stop()
	close(h.cleanupDone)
	h.cleanupWg.Wait()
}

// Close stops the maintenance routine and closes every cached child.
// Root Loggers using the hub must be closed by their owners.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.stopCleanupRoutine()
		if h.instances != nil {
			h.instances.Purge()
		}
	})
	return nil
}

func (h *Hub) isClosed() bool {
	return h.closed.Load()
}
