package retrolog

import (
	"sync"
)

// fifoLock is a ticket lock: holders are admitted strictly in the order they
// took a ticket. Reserve lets a caller take its place in line now and wait
// for its turn later, possibly on another goroutine.
type fifoLock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    uint64
	serving uint64
}

type ticket uint64

func newFIFOLock() *fifoLock {
	f := &fifoLock{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Reserve takes the next ticket.
func (f *fifoLock) Reserve() ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := ticket(f.next)
	f.next++
	return t
}

// Wait blocks until t is being served. The caller then holds the lock and
// must call Unlock.
func (f *fifoLock) Wait(t ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ticket(f.serving) != t {
		f.cond.Wait()
	}
}

// Lock takes a ticket and waits for it.
func (f *fifoLock) Lock() {
	f.Wait(f.Reserve())
}

// Unlock admits the next ticket holder.
func (f *fifoLock) Unlock() {
	f.mu.Lock()
	f.serving++
	f.mu.Unlock()
	f.cond.Broadcast()
}

// Waiting returns the number of tickets issued but not yet served,
// including the current holder.
func (f *fifoLock) Waiting() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int(f.next - f.serving)
}
