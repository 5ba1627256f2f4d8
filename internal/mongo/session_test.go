package mongo

import (
	"testing"
	"time"
)

func TestSession_UseSwitchesDatabaseAndDropsCache(t *testing.T) {
	s := NewSession("test")
	if s.Database() != "test" {
		t.Errorf("unexpected initial database: %s", s.Database())
	}

	s.Put("collections/test", []string{"users"})
	s.Use("shop")

	if s.Database() != "shop" {
		t.Errorf("expected active database shop, got %s", s.Database())
	}
	if _, ok := s.Cached("collections/test"); ok {
		t.Error("cache should be dropped on database switch")
	}
}

func TestSession_CacheHitAndExpiry(t *testing.T) {
	s := NewSession("test")
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Put("collections/test", []string{"users", "orders"})

	v, ok := s.Cached("collections/test")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if names := v.([]string); len(names) != 2 {
		t.Errorf("unexpected cached value: %v", names)
	}

	current = current.Add(DefaultCacheTTL + time.Second)
	if _, ok := s.Cached("collections/test"); ok {
		t.Error("expected cache miss after ttl")
	}
}

func TestSession_Invalidate(t *testing.T) {
	s := NewSession("test")
	s.Put("a", 1)
	s.Put("b", 2)

	s.Invalidate()

	if _, ok := s.Cached("a"); ok {
		t.Error("entry a survived invalidation")
	}
	if _, ok := s.Cached("b"); ok {
		t.Error("entry b survived invalidation")
	}
}

func TestSession_CacheMiss(t *testing.T) {
	s := NewSession("test")
	if _, ok := s.Cached("never-stored"); ok {
		t.Error("expected miss for unknown key")
	}
}
