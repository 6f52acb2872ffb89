package cache

import (
	"testing"
	"time"

	"github.com/use-agent/purify/models"
)

func result(markdown string) *models.ExtractionResult {
	return &models.ExtractionResult{Markdown: markdown}
}

func TestCache_BasicGetSet(t *testing.T) {
	c := New(10, time.Hour)
	c.Set("a", result("A"))

	v, ok := c.Get("a")
	if !ok || v.Markdown != "A" {
		t.Fatalf("expected hit with markdown A, got %v %v", v, ok)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Set("a", result("A"))

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected entry to be observationally absent after TTL elapsed")
	}
	if c.Has("a") {
		t.Fatal("expected Has to report absent after TTL elapsed")
	}
}

func TestCache_SizeBounded(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a", result("A"))
	c.Set("b", result("B"))
	c.Set("c", result("C"))

	if c.Size() > 2 {
		t.Fatalf("expected size <= 2, got %d", c.Size())
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a", result("A"))
	c.Set("b", result("B"))
	c.Set("c", result("C"))

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("expected b to still be present")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to still be present")
	}
}

func TestCache_GetBetweenSetsKeepsEntryAlive(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a", result("A"))
	c.Set("b", result("B"))

	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present before c is inserted")
	}

	c.Set("c", result("C"))

	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive because it was the most recently used")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted instead of a")
	}
}

func TestCache_SetReplacesExisting(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a", result("A1"))
	c.Set("a", result("A2"))

	v, ok := c.Get("a")
	if !ok || v.Markdown != "A2" {
		t.Fatalf("expected replaced value A2, got %v", v)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1 after replace, got %d", c.Size())
	}
}

func TestCache_Clear(t *testing.T) {
	c := New(10, time.Hour)
	c.Set("a", result("A"))
	c.Clear()

	if c.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected no entries after Clear")
	}
}
