package retrolog

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestFIFOLock_AdmitsInTicketOrder(t *testing.T) {
	lock := newFIFOLock()
	tickets := []ticket{lock.Reserve(), lock.Reserve(), lock.Reserve()}
	if lock.Waiting() != 3 {
		t.Errorf("Waiting() = %d, want 3", lock.Waiting())
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	// Start the waiters in reverse so goroutine scheduling cannot explain
	// the order.
	for i := len(tickets) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lock.Wait(tickets[i])
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			lock.Unlock()
		}(i)
	}
	wg.Wait()

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("order = %v, want [0 1 2]", order)
	}
	if lock.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0", lock.Waiting())
	}
}

func TestFIFOLock_MutualExclusion(t *testing.T) {
	lock := newFIFOLock()
	var active, peak atomic.Int32
	var wg sync.WaitGroup

	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				lock.Lock()
				n := active.Add(1)
				if n > peak.Load() {
					peak.Store(n)
				}
				active.Add(-1)
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	if peak.Load() != 1 {
		t.Errorf("max holders = %d, want 1", peak.Load())
	}
}
