// Package memstat reports how much memory the process can still allocate
// before it hits either its own limit or the operating system's.
package memstat

import (
	"errors"
	"math"
	"runtime"
	"runtime/debug"
)

// ErrUnavailable is returned when no memory bound can be determined.
var ErrUnavailable = errors.New("memory statistics unavailable")

// Headroom returns the smaller of the logical headroom (limit minus memory
// obtained from the OS by the Go runtime) and the free memory reported by
// the operating system.
//
// A zero limit uses the runtime memory limit set by GOMEMLIMIT or
// debug.SetMemoryLimit. If neither bound is known, ErrUnavailable is returned.
func Headroom(limit uint64) (uint64, error) {
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l != math.MaxInt64 {
			limit = uint64(l)
		}
	}

	headroom := uint64(math.MaxUint64)
	known := false

	if limit > 0 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		used := ms.Sys - ms.HeapReleased
		if used >= limit {
			headroom = 0
		} else {
			headroom = limit - used
		}
		known = true
	}

	if free, err := systemFree(); err == nil {
		if free < headroom {
			headroom = free
		}
		known = true
	}

	if !known {
		return 0, ErrUnavailable
	}
	return headroom, nil
}
