package cache

import (
	"testing"
	"time"
)

func TestLRUCacheExpiryAndEviction(t *testing.T) {
	now := time.Date(2025, 11, 9, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](2, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", "3") // evicts b, the least recently used
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("cleaned %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size after clean = %d", c.Size())
	}
}

func TestLRUCachePurgeAndManager(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	c.Set("x", 1)
	c.Set("y", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("size after purge = %d", c.Size())
	}

	expired := NewLRUCache[int](10, -time.Second)
	expired.Set("z", 3)

	m := NewManager()
	m.Register(c)
	m.Register(expired)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("sweep evicted %d, want 1", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
