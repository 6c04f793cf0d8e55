// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package lrucache provides a thread-safe, fixed-capacity least-recently-used (LRU) cache.
Keys are strings. Entries are created on first use by [LRUCache.GetOrAdd], and the
least recently used entry is evicted when the cache is over capacity.
*/
package lrucache

import (
	"container/list"
	"errors"
	"sync"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// LRUCache is a fixed-capacity, least-recently-used cache that is safe for concurrent use.
// Instances must be constructed with [NewLRUCache]; the zero value is not ready for use.
type LRUCache[V any] struct {
	size      int                      // Maximum capacity of the cache (number of entries)
	evictList *list.List               // A doubly-linked list to manage the eviction order
	items     map[string]*list.Element // Maps string keys to their corresponding linked-list elements
	lock      sync.Mutex
}

// cacheEntry holds the key/value pair stored in each linked-list element.
type cacheEntry[V any] struct {
	key   string
	value V
}

// NewLRUCache creates a new cache with the specified maximum size.
//
// It returns an error if size is not a positive integer.
func NewLRUCache[V any](size int) (*LRUCache[V], error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	return &LRUCache[V]{
		size:      size,
		evictList: list.New(),
		items:     make(map[string]*list.Element),
	}, nil
}

// GetOrAdd returns the value for key, creating it with create when absent.
//
// The lookup and the insertion happen under one lock, so concurrent callers
// for the same key observe the same value.
func (c *LRUCache[V]) GetOrAdd(key string, create func() V) V {
	c.lock.Lock()
	defer c.lock.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)

		return ent.Value.(*cacheEntry[V]).value //nolint:forcetypeassert // only cacheEntry[V] is stored
	}

	value := create()
	c.add(key, value)

	return value
}

// Len returns the current number of items in the cache.
func (c *LRUCache[V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictList.Len()
}

// add inserts key, evicting the least recently used entry when over capacity.
// The caller holds the lock and has checked that key is absent.
func (c *LRUCache[V]) add(key string, value V) {
	c.items[key] = c.evictList.PushFront(&cacheEntry[V]{key: key, value: value})

	if c.evictList.Len() <= c.size {
		return
	}

	oldest := c.evictList.Back()
	c.evictList.Remove(oldest)
	delete(c.items, oldest.Value.(*cacheEntry[V]).key) //nolint:forcetypeassert // only cacheEntry[V] is stored
}
