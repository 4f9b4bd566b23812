package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	c := New[string, int](4)
	if c.Capacity() != 4 {
		t.Errorf("expected capacity 4, got %d", c.Capacity())
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
	if New[string, int](0).Capacity() != 1 {
		t.Error("expected capacity 0 to be raised to 1")
	}
}

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 42)

	if val, ok := c.Get("a"); !ok || val != 42 {
		t.Errorf("Get(a) = %d, %v; want 42, true", val, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected missing key to not exist")
	}

	c.Set("a", 7)
	if val, _ := c.Get("a"); val != 7 {
		t.Errorf("expected overwritten value 7, got %d", val)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after overwrite, got %d", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch a so b becomes the oldest.
	c.Get("a")
	c.Set("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to survive", k)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("expected 1 eviction, got %d", got)
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int](10)
	calls := 0
	create := func() int {
		calls++
		return 100 * calls
	}

	if val := c.GetOrCreate("k", create); val != 100 {
		t.Errorf("expected 100, got %d", val)
	}
	if val := c.GetOrCreate("k", create); val != 100 {
		t.Errorf("expected cached 100, got %d", val)
	}
	if calls != 1 {
		t.Errorf("expected create called once, got %d", calls)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.HitRate != 0.5 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestCacheDeleteClear(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)
	c.Set("b", 2)

	if !c.Delete("a") {
		t.Error("expected Delete to return true for existing key")
	}
	if c.Delete("a") {
		t.Error("expected Delete to return false for removed key")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", c.Len())
	}
	c.Set("c", 3)
	if val, ok := c.Get("c"); !ok || val != 3 {
		t.Error("cache unusable after Clear")
	}
}

func TestCacheSingleEntry(t *testing.T) {
	c := New[int, int](1)
	for i := range 5 {
		c.Set(i, i)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
	if val, ok := c.Get(4); !ok || val != 4 {
		t.Errorf("expected newest entry to remain, got %d, %v", val, ok)
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New[string, int](16)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				key := strconv.Itoa((g + i) % 32)
				c.GetOrCreate(key, func() int { return i })
				c.Get(key)
			}
		}()
	}
	wg.Wait()

	if c.Len() > 16 {
		t.Errorf("expected at most 16 entries, got %d", c.Len())
	}
}
