package buffer

import (
	"context"
	"errors"
	"runtime"
	"time"
)

// ClearBatchSize is the number of lines Clear deletes before yielding.
const ClearBatchSize = 100

// ErrReleased is returned when a released Manager is asked to buffer a line.
var ErrReleased = errors.New("buffer manager released")

// Manager owns one LineStore per level and routes every mutation of its
// lines through the shared Pool. The ring is shared with every other Manager
// of the same Pool, so the Limit* operations act Pool-wide.
type Manager struct {
	pool     *Pool
	id       OwnerID
	stores   map[string]*LineStore
	hook     EvictHook
	released bool
}

// ID returns the owner id recorded on this manager's lines.
func (m *Manager) ID() OwnerID {
	return m.id
}

// Pool returns the pool the manager belongs to.
func (m *Manager) Pool() *Pool {
	return m.pool
}

// AddLine buffers line under level. The level's LineStore is created on
// first use. The line's sequence, owner and timestamp are assigned here and
// the line is appended to the ring, possibly evicting the oldest line.
func (m *Manager) AddLine(level string, line *Line) (uint64, error) {
	p := m.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	if m.released {
		return 0, ErrReleased
	}

	store := m.stores[level]
	if store == nil {
		store = NewLineStore(level)
		m.stores[level] = store
	}

	p.nextLine++
	line.ID = p.nextLine
	line.Context.Level = level
	line.Context.Owner = m.id
	line.Context.Timestamp = p.timestampLocked(line.Context.Timestamp)
	line.Context.Written = false
	line.Context.Expired = false
	line.Context.Sequence = store.Add(line.ID)

	p.arena[line.ID] = line
	p.ring.Enqueue(line.ID)
	return line.Context.Sequence, nil
}

// DeleteLine removes one of this manager's lines from its LineStore and the
// arena. Deleting a line that is already gone is a no-op returning false.
func (m *Manager) DeleteLine(id LineID) bool {
	p := m.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	line := p.arena[id]
	if line == nil || line.Context.Owner != m.id {
		return false
	}
	p.removeLocked(line)
	return true
}

// Get returns a copy of a buffered line.
func (m *Manager) Get(level string, seq uint64) (Candidate, bool) {
	p := m.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	store := m.stores[level]
	if store == nil {
		return Candidate{}, false
	}
	id, ok := store.Get(seq)
	if !ok {
		return Candidate{}, false
	}
	line := p.arena[id]
	if line == nil {
		return Candidate{}, false
	}
	return Candidate{ID: id, Context: line.Context, Payload: line.Payload}, true
}

// LimitByMaxAge evicts lines older than maxAge across the whole pool.
func (m *Manager) LimitByMaxAge(maxAge time.Duration) int {
	return m.pool.LimitByMaxAge(maxAge)
}

// LimitByMaxCount exists for symmetry with the other limits. The ring's
// fixed capacity already evicts on every overflowing AddLine.
func (m *Manager) LimitByMaxCount() int {
	return 0
}

// LimitByAlreadyWritten reclaims ring slots of written or deleted lines.
func (m *Manager) LimitByAlreadyWritten() int {
	return m.pool.LimitByAlreadyWritten()
}

// LimitByMinFreeMemory runs the pool's low-memory backstop.
func (m *Manager) LimitByMinFreeMemory(reservedBytes uint64, fraction float64) int {
	return m.pool.LimitByMinFreeMemory(reservedBytes, fraction)
}

// Snapshot returns every live, unclaimed line with rank >= minRank, ordered
// by timestamp and then by arrival.
func (m *Manager) Snapshot(minRank int) []Candidate {
	p := m.pool
	p.mu.Lock()
	out := make([]Candidate, 0, m.lenLocked())
	for _, store := range m.stores {
		for _, id := range store.IDs() {
			line := p.arena[id]
			if line == nil || !line.live() || line.claimed {
				continue
			}
			if line.Context.Rank < minRank {
				continue
			}
			out = append(out, Candidate{ID: id, Context: line.Context, Payload: line.Payload})
		}
	}
	p.mu.Unlock()

	sortCandidates(out)
	return out
}

// ClaimState reports what ClaimLine found.
type ClaimState int

const (
	// ClaimAcquired means the line was buffered and is now claimed by the caller
	ClaimAcquired ClaimState = iota
	// ClaimBusy means another writer holds the claim
	ClaimBusy
	// ClaimWritten means the line was already written
	ClaimWritten
	// ClaimEvicted means the line left the buffer unwritten
	ClaimEvicted
)

// Candidate returns a copy of line as it is now. Unlike Get it works for a
// line that was already written or evicted.
func (m *Manager) Candidate(line *Line) Candidate {
	m.pool.mu.Lock()
	defer m.pool.mu.Unlock()
	return Candidate{ID: line.ID, Context: line.Context, Payload: line.Payload}
}

// ClaimLine is Claim for a caller still holding the line it added. It tells
// a line that was written apart from one that was evicted.
func (m *Manager) ClaimLine(line *Line) ([]interface{}, ClaimState) {
	p := m.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case line.Context.Owner != m.id:
		return nil, ClaimEvicted
	case line.Context.Written:
		return nil, ClaimWritten
	case line.Context.Expired:
		return nil, ClaimEvicted
	case line.claimed:
		return nil, ClaimBusy
	}
	line.claimed = true
	return line.Payload, ClaimAcquired
}

// Claim marks a line as being written so that no other flush picks it up.
// It returns false if the line is gone, already written or already claimed.
func (m *Manager) Claim(id LineID) ([]interface{}, bool) {
	p := m.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	line := p.arena[id]
	if line == nil || line.Context.Owner != m.id || !line.live() || line.claimed {
		return nil, false
	}
	line.claimed = true
	return line.Payload, true
}

// Unclaim returns a claimed line to the buffer after a failed write.
func (m *Manager) Unclaim(id LineID) {
	p := m.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	if line := p.arena[id]; line != nil && line.Context.Owner == m.id {
		line.claimed = false
	}
}

// Complete marks a claimed line written and deletes it. It is a no-op if the
// line was evicted while it was being written.
func (m *Manager) Complete(id LineID) {
	p := m.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	line := p.arena[id]
	if line == nil || line.Context.Owner != m.id {
		return
	}
	line.Context.Written = true
	p.removeLocked(line)
}

// Len returns the number of buffered lines across all levels.
func (m *Manager) Len() int {
	m.pool.mu.Lock()
	defer m.pool.mu.Unlock()
	return m.lenLocked()
}

// LevelSize returns the number of buffered lines for level.
func (m *Manager) LevelSize(level string) int {
	m.pool.mu.Lock()
	defer m.pool.mu.Unlock()
	if store := m.stores[level]; store != nil {
		return store.Size()
	}
	return 0
}

func (m *Manager) lenLocked() int {
	n := 0
	for _, store := range m.stores {
		n += store.Size()
	}
	return n
}

// Clear tears down every LineStore, ClearBatchSize lines at a time, yielding
// the processor between batches. It returns ctx.Err() if ctx is done before
// the buffer is empty; lines deleted up to that point stay deleted.
func (m *Manager) Clear(ctx context.Context) error {
	p := m.pool
	for {
		p.mu.Lock()
		n := 0
		for _, store := range m.stores {
			for _, id := range store.entries {
				if n == ClearBatchSize {
					break
				}
				if line := p.arena[id]; line != nil {
					p.evictLocked(line, EvictClear)
				} else {
					store.removeID(id)
				}
				n++
			}
			if n == ClearBatchSize {
				break
			}
		}
		if n == 0 {
			for _, store := range m.stores {
				store.Clear()
			}
			m.stores = make(map[string]*LineStore)
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
}

// Release stops intake, clears the manager and unregisters it from the
// pool. AddLine fails with ErrReleased from the moment Release is called,
// even if ctx ends before the buffer is empty.
func (m *Manager) Release(ctx context.Context) error {
	p := m.pool
	p.mu.Lock()
	m.released = true
	p.mu.Unlock()

	if err := m.Clear(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.owners, m.id)
	return nil
}
