package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New(10)
	c.Set("http://a.test/", []byte("body-a"))

	body, ok := c.Get("http://a.test/", time.Minute)
	if !ok || string(body) != "body-a" {
		t.Errorf("got (%q, %v)", body, ok)
	}

	if _, ok := c.Get("http://missing.test/", time.Minute); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestGet_ZeroMaxAgeSkipsLookup(t *testing.T) {
	c := New(10)
	c.Set("k", []byte("v"))

	if _, ok := c.Get("k", 0); ok {
		t.Error("maxAge <= 0 must bypass the cache")
	}
}

func TestGet_Expiry(t *testing.T) {
	c := New(10)
	c.Set("k", []byte("v"))

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k", time.Millisecond); ok {
		t.Error("expected expired entry to miss")
	}
	if _, ok := c.Get("k", time.Minute); !ok {
		t.Error("entry should still serve under a longer maxAge")
	}
}

func TestNew_NonPositiveSizeUsesDefault(t *testing.T) {
	for _, size := range []int{0, -5} {
		c := New(size)
		if c.maxEntries != defaultMaxEntries {
			t.Errorf("New(%d): maxEntries = %d, want %d", size, c.maxEntries, defaultMaxEntries)
		}

		// Must behave as a real cache, not evict on every Set.
		c.Set("a", []byte("1"))
		c.Set("b", []byte("2"))
		if got := c.Len(); got != 2 {
			t.Errorf("New(%d): Len = %d after two Sets, want 2", size, got)
		}
	}
}

func TestSet_CapacityEviction(t *testing.T) {
	c := New(3)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte("v"))
	}
	if got := c.Len(); got > 3 {
		t.Errorf("cache grew past capacity: %d entries", got)
	}
}
