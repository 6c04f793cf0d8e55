// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package lrucache

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

// TestNewLRUCache checks the creation of a new LRUCache with both valid and invalid sizes.
func TestNewLRUCache(t *testing.T) {
	t.Parallel()

	t.Run("ValidSize", func(t *testing.T) {
		t.Parallel()

		cache, err := NewLRUCache[int](3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cache.Len() != 0 {
			t.Errorf("expected cache length to be 0, got %d", cache.Len())
		}
	})

	t.Run("InvalidSize", func(t *testing.T) {
		t.Parallel()

		cache, err := NewLRUCache[int](0)
		if err == nil {
			t.Fatal("expected error when creating cache of size 0, got nil")
		}

		if cache != nil {
			t.Error("expected no cache to be returned on error")
		}
	})
}

// TestLRUCache_Eviction verifies that the least recently used key is dropped
// once the capacity is exceeded, and that a hit counts as a use.
func TestLRUCache_Eviction(t *testing.T) {
	t.Parallel()

	cache, err := NewLRUCache[string](2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created := 0
	get := func(key string) string {
		return cache.GetOrAdd(key, func() string {
			created++

			return key + strconv.Itoa(created)
		})
	}

	get("a")
	get("b")

	// Touch "a" so that "b" becomes the oldest entry.
	if v := get("a"); v != "a1" {
		t.Fatalf("GetOrAdd(a) = %q, want the cached a1", v)
	}

	get("c")

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}

	if v := get("a"); v != "a1" {
		t.Errorf("GetOrAdd(a) = %q, want a1 to survive eviction", v)
	}

	if v := get("b"); v != "b4" {
		t.Errorf("GetOrAdd(b) = %q, want b to be evicted and recreated", v)
	}

	if created != 4 {
		t.Errorf("create called %d times, want 4", created)
	}
}

func TestLRUCache_GetOrAddConcurrent(t *testing.T) {
	t.Parallel()

	cache, _ := NewLRUCache[*int64](16)

	var (
		created atomic.Int64
		wg      sync.WaitGroup
	)

	for i := range 64 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			counter := cache.GetOrAdd("key-"+strconv.Itoa(i%4), func() *int64 {
				created.Add(1)

				return new(int64)
			})
			atomic.AddInt64(counter, 1)
		}()
	}

	wg.Wait()

	if got := created.Load(); got != 4 {
		t.Errorf("create called %d times, want 4", got)
	}

	if cache.Len() != 4 {
		t.Errorf("Len() = %d, want 4", cache.Len())
	}

	var total int64

	for i := range 4 {
		v := cache.GetOrAdd("key-"+strconv.Itoa(i), func() *int64 {
			t.Errorf("key-%d was not cached", i)

			return new(int64)
		})
		total += atomic.LoadInt64(v)
	}

	if total != 64 {
		t.Errorf("total = %d, want 64", total)
	}
}
