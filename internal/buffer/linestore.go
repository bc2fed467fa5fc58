package buffer

// LineStore maps sequence numbers to line ids for a single level.
// Sequences start at 0, increase monotonically and are only reset by Clear.
//
// LineStore is not safe for concurrent use; the owning Pool serializes access.
type LineStore struct {
	level   string
	entries map[uint64]LineID
	next    uint64
}

// NewLineStore creates an empty store for level.
func NewLineStore(level string) *LineStore {
	return &LineStore{
		level:   level,
		entries: make(map[uint64]LineID),
	}
}

// Level returns the level name the store was created for.
func (s *LineStore) Level() string {
	return s.level
}

// Add stores id under the next sequence number and returns that number.
func (s *LineStore) Add(id LineID) uint64 {
	seq := s.next
	s.next++
	s.entries[seq] = id
	return seq
}

// Get returns the id stored under seq.
func (s *LineStore) Get(seq uint64) (LineID, bool) {
	id, ok := s.entries[seq]
	return id, ok
}

// Delete removes seq. It reports whether anything was removed, so a second
// call for the same sequence returns false.
func (s *LineStore) Delete(seq uint64) bool {
	if _, ok := s.entries[seq]; !ok {
		return false
	}
	delete(s.entries, seq)
	return true
}

// removeID deletes every sequence pointing at id.
func (s *LineStore) removeID(id LineID) {
	for seq, stored := range s.entries {
		if stored == id {
			delete(s.entries, seq)
		}
	}
}

// Size returns the number of stored lines.
func (s *LineStore) Size() int {
	return len(s.entries)
}

// IDs returns the stored ids in no particular order.
func (s *LineStore) IDs() []LineID {
	ids := make([]LineID, 0, len(s.entries))
	for _, id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Clear drops every entry and resets the sequence counter.
func (s *LineStore) Clear() {
	s.entries = make(map[uint64]LineID)
	s.next = 0
}
