package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func value(v string) func() (string, error) {
	return func() (string, error) { return v, nil }
}

func TestCapacityEviction(t *testing.T) {
	var evicted []string
	c := New[string, string](2, 0, func(key, _ string, reason Reason) {
		evicted = append(evicted, key+":"+reason.String())
	})

	for _, k := range []string{"A", "B", "C"} {
		if _, err := c.GetOrCreate(k, value(k)); err != nil {
			t.Fatalf("GetOrCreate(%s) error = %v", k, err)
		}
	}

	if len(evicted) != 1 || evicted[0] != "A:capacity" {
		t.Errorf("evicted = %v, want [A:capacity]", evicted)
	}
	if _, ok := c.Get("A"); ok {
		t.Error("A should have been evicted")
	}
	for _, k := range []string{"B", "C"} {
		if v, ok := c.Get(k); !ok || v != k {
			t.Errorf("Get(%s) = %q, %v, want %q, true", k, v, ok, k)
		}
	}
}

func TestAccessRefreshesRecency(t *testing.T) {
	c := New[string, string](2, 0, nil)
	c.GetOrCreate("A", value("A"))
	c.GetOrCreate("B", value("B"))
	c.Get("A")
	c.GetOrCreate("C", value("C"))

	if _, ok := c.Get("B"); ok {
		t.Error("B was least recently used and should have been evicted")
	}
	if _, ok := c.Get("A"); !ok {
		t.Error("A was touched and should remain")
	}
}

func TestGetOrCreateReusesEntry(t *testing.T) {
	c := New[string, int](10, 0, nil)
	calls := 0
	factory := func() (int, error) {
		calls++
		return calls, nil
	}

	first, _ := c.GetOrCreate("k", factory)
	second, _ := c.GetOrCreate("k", factory)
	if first != second || calls != 1 {
		t.Errorf("factory called %d times, values %d/%d", calls, first, second)
	}
}

func TestFactoryError(t *testing.T) {
	c := New[string, int](10, 0, nil)
	boom := errors.New("boom")
	if _, err := c.GetOrCreate("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("GetOrCreate() error = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestIdleExpiry(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	var reasons []Reason
	c := New[string, string](10, time.Minute, func(_, _ string, r Reason) {
		reasons = append(reasons, r)
	})
	c.SetClock(clock.Now)

	c.GetOrCreate("A", value("A"))
	clock.Advance(30 * time.Second)
	if _, ok := c.Get("A"); !ok {
		t.Fatal("A should still be live")
	}

	// The access above reset the idle clock.
	clock.Advance(45 * time.Second)
	if _, ok := c.Get("A"); !ok {
		t.Fatal("A should still be live after refresh")
	}

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("A"); ok {
		t.Error("A should have expired")
	}
	if len(reasons) != 1 || reasons[0] != ReasonExpired {
		t.Errorf("reasons = %v, want [expired]", reasons)
	}
}

func TestExpiredEntryIsRecreated(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	c := New[string, int](10, time.Minute, nil)
	c.SetClock(clock.Now)

	n := 0
	factory := func() (int, error) { n++; return n, nil }
	c.GetOrCreate("A", factory)
	clock.Advance(2 * time.Minute)
	v, _ := c.GetOrCreate("A", factory)
	if v != 2 {
		t.Errorf("GetOrCreate() after expiry = %d, want a fresh value 2", v)
	}
}

func TestSweep(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	c := New[string, string](10, time.Minute, nil)
	c.SetClock(clock.Now)

	c.GetOrCreate("old1", value("x"))
	c.GetOrCreate("old2", value("x"))
	clock.Advance(90 * time.Second)
	c.GetOrCreate("new", value("x"))

	if n := c.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "new" {
		t.Errorf("Keys() = %v, want [new]", keys)
	}
}

func TestRemoveAndPurge(t *testing.T) {
	var count int
	c := New[string, string](10, 0, func(_, _ string, _ Reason) { count++ })
	c.GetOrCreate("A", value("A"))
	c.GetOrCreate("B", value("B"))
	c.GetOrCreate("C", value("C"))

	if !c.Remove("A") || c.Remove("A") {
		t.Error("Remove() should succeed once")
	}
	c.Purge()
	if c.Len() != 0 || count != 3 {
		t.Errorf("Len() = %d, hooks = %d, want 0, 3", c.Len(), count)
	}
}

func TestRemoveFunc(t *testing.T) {
	c := New[string, string](10, 0, nil)
	c.GetOrCreate("A", value("first"))

	if c.RemoveFunc("A", func(v string) bool { return v == "other" }) {
		t.Error("RemoveFunc() removed a non-matching value")
	}
	if !c.RemoveFunc("A", func(v string) bool { return v == "first" }) {
		t.Error("RemoveFunc() did not remove the matching value")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestKeyIsOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"user": "u1", "request": 42, "tags": []string{"x"}}
	b := map[string]interface{}{"tags": []string{"x"}, "request": 42, "user": "u1"}

	if Key(a) != Key(b) {
		t.Errorf("Key() differs: %q vs %q", Key(a), Key(b))
	}
	if Key(a) == Key(map[string]interface{}{"user": "u2", "request": 42, "tags": []string{"x"}}) {
		t.Error("different values must yield different keys")
	}
	if Key(nil) != "" {
		t.Errorf("Key(nil) = %q, want empty", Key(nil))
	}
}

func TestKeyUnmarshalableValue(t *testing.T) {
	fields := map[string]interface{}{"ch": make(chan int)}
	if Key(fields) == "" {
		t.Error("Key() should fall back for values json cannot encode")
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	c := New[string, string](5, 0, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := fmt.Sprintf("k%d", (i+j)%8)
				c.GetOrCreate(k, value(k))
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 5 {
		t.Errorf("Len() = %d, want <= 5", c.Len())
	}
}
