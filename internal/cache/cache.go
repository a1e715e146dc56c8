// Package cache keeps finished results around long enough for the operator
// to export a report.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Brownie44l1/alzdetect/internal/store"
)

// ErrNotFound is returned when an entry is unknown or has expired.
var ErrNotFound = errors.New("result not found")

// Entry is a finished record plus the scan it was computed from.
type Entry struct {
	Record   store.Record `json:"record"`
	ImagePNG []byte       `json:"image_png"`
}

// Cache stores entries by record ID.
type Cache interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
}

// MemoryCache is a process-local Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Put(_ context.Context, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, me := range c.entries {
		if now.After(me.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.entries[e.Record.ID] = memoryEntry{entry: e, expiresAt: now.Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, id string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	me, ok := c.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.now().After(me.expiresAt) {
		delete(c.entries, id)
		return nil, ErrNotFound
	}
	e := me.entry
	return &e, nil
}
