package cache

import (
	"fmt"
	"testing"
	"time"
)

type analysis struct {
	Summary string
}

func TestCache_PutGet(t *testing.T) {
	c := New[analysis](DefaultCapacity, DefaultTTL)
	defer c.Stop()

	c.Put("video-1", analysis{Summary: "cooking tutorial"})

	got, ok := c.Get("video-1")
	if !ok {
		t.Fatal("entry missing after Put")
	}
	if got.Summary != "cooking tutorial" {
		t.Errorf("Summary = %q, want %q", got.Summary, "cooking tutorial")
	}

	if _, ok := c.Get("video-2"); ok {
		t.Error("hit for a key that was never stored")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string](DefaultCapacity, DefaultTTL)
	defer c.Stop()

	c.Put("k", "v")
	c.Delete("k")

	if _, ok := c.Get("k"); ok {
		t.Error("entry survived Delete")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New[string](DefaultCapacity, 20*time.Millisecond)
	defer c.Stop()

	c.Put("k", "v")
	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("entry survived past its TTL")
	}
}

func TestCache_CapacityEvictsOldest(t *testing.T) {
	c := New[int](4, DefaultTTL)
	defer c.Stop()

	for i := 0; i < 8; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}

	if c.Len() != 4 {
		t.Fatalf("Len = %d, want the capacity of 4", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("oldest entry survived eviction")
	}
	if v, ok := c.Get("k7"); !ok || v != 7 {
		t.Errorf("newest entry = %v/%v, want 7/true", v, ok)
	}
}
