package buffer

// DefaultRingCapacity is used when a non-positive capacity is requested.
const DefaultRingCapacity = 10000

// Ring is a fixed-capacity FIFO of line ids. When full, Enqueue evicts the
// oldest id and hands it to the eviction callback before storing the new one.
//
// Only the front can be removed. Lines deleted elsewhere leave their id in
// place; the slot is reclaimed once it reaches the front.
//
// Ring is not safe for concurrent use; the owning Pool serializes access.
type Ring struct {
	ids     []LineID
	head    int // index of the front element
	size    int
	onEvict func(LineID)
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int, onEvict func(LineID)) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{
		ids:     make([]LineID, capacity),
		onEvict: onEvict,
	}
}

// Enqueue appends id, evicting the front first if the ring is full.
func (r *Ring) Enqueue(id LineID) {
	if r.size == len(r.ids) {
		evicted, _ := r.DequeueFront()
		if r.onEvict != nil {
			r.onEvict(evicted)
		}
	}
	r.ids[(r.head+r.size)%len(r.ids)] = id
	r.size++
}

// DequeueFront removes and returns the oldest id.
func (r *Ring) DequeueFront() (LineID, bool) {
	if r.size == 0 {
		return 0, false
	}
	id := r.ids[r.head]
	r.ids[r.head] = 0
	r.head = (r.head + 1) % len(r.ids)
	r.size--
	return id, true
}

// PeekFront returns the oldest id without removing it.
func (r *Ring) PeekFront() (LineID, bool) {
	if r.size == 0 {
		return 0, false
	}
	return r.ids[r.head], true
}

// PeekN returns up to n ids starting from the front, oldest first.
func (r *Ring) PeekN(n int) []LineID {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]LineID, n)
	for i := 0; i < n; i++ {
		out[i] = r.ids[(r.head+i)%len(r.ids)]
	}
	return out
}

// Size returns the number of occupied slots, including stale ones.
func (r *Ring) Size() int {
	return r.size
}

// Capacity returns the maximum number of slots.
func (r *Ring) Capacity() int {
	return len(r.ids)
}

// IsEmpty reports whether the ring has no slots in use.
func (r *Ring) IsEmpty() bool {
	return r.size == 0
}
