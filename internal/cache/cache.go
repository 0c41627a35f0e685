// Package cache holds analysis results for repeated requests.
//
// Entries live for a fixed TTL measured from insertion and are dropped lazily
// when a Get finds them stale. The cache is also bounded: once it holds
// capacity entries, inserting a new key evicts the least recently used one.
// Nothing is persisted; a restart starts empty.
package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vbonduro/nutriscan/internal/domain"
)

const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 256
)

type entry struct {
	record    *domain.AnalysisRecord
	createdAt time.Time
}

// ResultCache maps fingerprints to analysis records. It is safe for
// concurrent use.
type ResultCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries *lru.Cache[string, entry]
}

type Option func(*ResultCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// New creates a cache. Non-positive ttl or capacity fall back to the defaults.
func New(ttl time.Duration, capacity int, opts ...Option) (*ResultCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	c := &ResultCache{ttl: ttl, now: time.Now, entries: entries}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a copy of the record stored under key, or false if there is none
// or it is at least TTL old.
func (c *ResultCache) Get(key string) (*domain.AnalysisRecord, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		c.entries.Remove(key)
		return nil, false
	}
	return e.record.Clone(), true
}

// Put stores a copy of record under key, replacing any previous entry.
func (c *ResultCache) Put(key string, record *domain.AnalysisRecord) {
	if record == nil {
		return
	}
	c.entries.Add(key, entry{record: record.Clone(), createdAt: c.now()})
}

// Len reports the number of entries, including expired ones not yet dropped.
func (c *ResultCache) Len() int {
	return c.entries.Len()
}
