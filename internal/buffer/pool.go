package buffer

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wayneeseguin/retrolog/internal/memstat"
)

// MemoryEvictionBatch is the number of live lines dropped each time the
// low-memory backstop fires. The batch is fixed rather than sized to the
// memory actually needed: one trigger frees at most this many lines, and a
// caller that is still short on headroom triggers again on its next trim.
const MemoryEvictionBatch = 200

// MemoryProbe reports the number of bytes the process can still allocate.
type MemoryProbe func() (uint64, error)

// Pool is the arena shared by every Manager created from it. It owns the
// ring that records arrival order across all managers and all levels.
type Pool struct {
	mu        sync.Mutex
	arena     map[LineID]*Line
	ring      *Ring
	owners    map[OwnerID]*Manager
	nextLine  LineID
	nextOwner OwnerID
	lastTime  time.Time

	now   func() time.Time
	probe MemoryProbe

	evicted [EvictClear + 1]atomic.Uint64
}

// NewPool creates a pool whose ring holds at most capacity lines.
func NewPool(capacity int) *Pool {
	p := &Pool{
		arena:  make(map[LineID]*Line),
		owners: make(map[OwnerID]*Manager),
		now:    time.Now,
	}
	p.probe = func() (uint64, error) {
		return memstat.Headroom(0)
	}
	p.ring = NewRing(capacity, p.onRingEvict)
	return p
}

// SetClock replaces the time source. It is intended for tests.
func (p *Pool) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// SetMemoryProbe replaces the headroom probe used by LimitByMinFreeMemory.
func (p *Pool) SetMemoryProbe(probe MemoryProbe) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probe = probe
}

// SetMemoryLimit bounds the probe's logical headroom by maxBytes.
// Zero means the Go runtime memory limit.
func (p *Pool) SetMemoryLimit(maxBytes uint64) {
	p.SetMemoryProbe(func() (uint64, error) {
		return memstat.Headroom(maxBytes)
	})
}

// NewManager registers a new owner with the pool.
func (p *Pool) NewManager(hook EvictHook) *Manager {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextOwner++
	m := &Manager{
		pool:   p,
		id:     p.nextOwner,
		stores: make(map[string]*LineStore),
		hook:   hook,
	}
	p.owners[m.id] = m
	return m
}

// RingSize returns the number of occupied ring slots.
func (p *Pool) RingSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ring.Size()
}

// Capacity returns the ring capacity.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ring.Capacity()
}

// Live returns the number of lines still held in the arena.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.arena)
}

// Evicted returns how many lines were evicted for reason since creation.
func (p *Pool) Evicted(reason EvictReason) uint64 {
	if reason < 0 || int(reason) >= len(p.evicted) {
		return 0
	}
	return p.evicted[reason].Load()
}

// LimitByMaxAge evicts lines older than maxAge from the front of the ring.
// It relies on the ring being ordered by timestamp, which AddLine guarantees.
func (p *Pool) LimitByMaxAge(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-maxAge)
	n := 0
	for {
		id, ok := p.ring.PeekFront()
		if !ok {
			return n
		}
		line := p.arena[id]
		if line == nil || !line.live() {
			p.ring.DequeueFront()
			continue
		}
		if !line.Context.Timestamp.Before(cutoff) {
			return n
		}
		p.ring.DequeueFront()
		p.evictLocked(line, EvictAge)
		n++
	}
}

// LimitByAlreadyWritten reclaims ring slots at the front whose lines were
// already written or deleted. It returns the number of slots reclaimed.
func (p *Pool) LimitByAlreadyWritten() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for {
		id, ok := p.ring.PeekFront()
		if !ok {
			return n
		}
		if line := p.arena[id]; line != nil && line.live() {
			return n
		}
		p.ring.DequeueFront()
		n++
	}
}

// LimitByMinFreeMemory evicts up to MemoryEvictionBatch of the oldest lines,
// regardless of age, when headroom*fraction falls below reservedBytes.
// A failing probe counts as zero headroom.
func (p *Pool) LimitByMinFreeMemory(reservedBytes uint64, fraction float64) int {
	if reservedBytes == 0 {
		return 0
	}
	p.mu.Lock()
	probe := p.probe
	p.mu.Unlock()

	var headroom uint64
	if probe != nil {
		if h, err := probe(); err == nil {
			headroom = h
		}
	}
	if float64(headroom)*fraction >= float64(reservedBytes) {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for n < MemoryEvictionBatch {
		id, ok := p.ring.DequeueFront()
		if !ok {
			break
		}
		line := p.arena[id]
		if line == nil || !line.live() {
			continue
		}
		p.evictLocked(line, EvictMemory)
		n++
	}
	return n
}

// onRingEvict runs under p.mu when Enqueue pushes out the front slot.
func (p *Pool) onRingEvict(id LineID) {
	line := p.arena[id]
	if line == nil || !line.live() {
		return
	}
	p.evictLocked(line, EvictCount)
}

// evictLocked removes a live line that left the buffer unwritten.
func (p *Pool) evictLocked(line *Line, reason EvictReason) {
	level := line.Context.Level
	owner := p.removeLocked(line)
	p.evicted[reason].Add(1)
	if owner != nil && owner.hook != nil {
		owner.hook(level, reason)
	}
}

// removeLocked cascades a delete through the owner's LineStore and the arena.
// The ring slot, if any, is left for lazy reclamation.
func (p *Pool) removeLocked(line *Line) *Manager {
	owner := p.owners[line.Context.Owner]
	if owner != nil {
		if store := owner.stores[line.Context.Level]; store != nil {
			store.Delete(line.Context.Sequence)
		}
	}
	delete(p.arena, line.ID)
	line.release()
	return owner
}

// timestampLocked returns the arrival time for a new line, never earlier than
// the previous one so that ring order matches timestamp order.
func (p *Pool) timestampLocked(ts time.Time) time.Time {
	if ts.IsZero() {
		ts = p.now()
	}
	if ts.Before(p.lastTime) {
		ts = p.lastTime
	}
	p.lastTime = ts
	return ts
}

// sortCandidates orders by timestamp, then by arrival id.
func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool {
		ti, tj := c[i].Context.Timestamp, c[j].Context.Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return c[i].ID < c[j].ID
	})
}
