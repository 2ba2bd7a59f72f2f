package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New[string]()
	c.Set("key1", "value1", 1*time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New[string]()
	c.Set("key1", "value1", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestDelete(t *testing.T) {
	c := New[string]()
	c.Set("key1", "value1", 1*time.Second)
	c.Delete("key1")
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[int]()
	c.Set("menu:full", 1, 1*time.Second)
	c.Set("menu:summary", 2, 1*time.Second)
	c.Set("other", 3, 1*time.Second)

	c.Invalidate("menu:")

	if _, ok := c.Get("menu:full"); ok {
		t.Fatalf("expected menu:full to be invalidated")
	}
	if _, ok := c.Get("menu:summary"); ok {
		t.Fatalf("expected menu:summary to be invalidated")
	}
	if _, ok := c.Get("other"); !ok {
		t.Fatalf("expected other to survive")
	}
}

func TestClear(t *testing.T) {
	c := New[string]()
	c.Set("a", "1", 1*time.Second)
	c.Set("b", "2", 1*time.Second)
	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected cleared cache to be empty")
	}
}

func TestZeroValueMiss(t *testing.T) {
	c := New[[]string]()
	val, ok := c.Get("absent")
	if ok || val != nil {
		t.Fatalf("expected nil slice and miss, got %v %v", val, ok)
	}
}
