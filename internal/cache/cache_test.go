package cache

import (
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d, want 0", c.Size())
	}
}

func TestLRUCache_DeleteGroup(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set(Key("u1", "2025-01"), 1)
	c.Set(Key("u1", "2025-02"), 2)
	c.Set(Key("u10", "2025-01"), 3)

	if n := c.DeleteGroup("u1"); n != 2 {
		t.Fatalf("DeleteGroup = %d, want 2", n)
	}
	if _, ok := c.Get(Key("u10", "2025-01")); !ok {
		t.Fatal("u10 entry must survive")
	}
	if n := c.DeleteGroup("u1"); n != 0 {
		t.Fatalf("second DeleteGroup = %d, want 0", n)
	}
}

func TestLRUCache_EvictionKeepsGroupIndex(t *testing.T) {
	c := NewLRUCache[int](1, time.Minute)
	c.Set(Key("u1", "2025-01"), 1)
	c.Set(Key("u2", "2025-01"), 2)

	if n := c.DeleteGroup("u1"); n != 0 {
		t.Fatalf("evicted entry still indexed, DeleteGroup = %d", n)
	}
	st := c.Stats()
	if st.Entries != 1 || st.Evictions != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestLRUCache_Stats(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("u1:a", 1)
	c.Get("u1:a")
	c.Get("u1:a")
	c.Get("u1:b")

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Entries != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestGroupOf(t *testing.T) {
	tests := map[string]string{
		Key("u1", "2025-03"): "u1",
		"plain":              "plain",
		"":                   "",
	}
	for key, want := range tests {
		if got := GroupOf(key); got != want {
			t.Errorf("GroupOf(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestManager_CleanAll(t *testing.T) {
	now := time.Now()
	dash := NewLRUCache[int](10, time.Second)
	dash.now = func() time.Time { return now }
	dash.Set(Key("u1", "2025-03"), 1)
	fresh := NewLRUCache[int](10, time.Hour)
	fresh.Set(Key("u1", "2025-03"), 2)

	m := NewManager()
	m.Stop()
	m.Register("dashboard", dash)
	m.Register("trend", fresh)
	now = now.Add(2 * time.Second)

	got := m.CleanAll()
	if len(got) != 1 || got["dashboard"] != 1 {
		t.Fatalf("CleanAll = %v, want map[dashboard:1]", got)
	}

	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
