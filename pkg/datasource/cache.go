package datasource

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/store"
)

// CacheEntry is the persisted form of a cached response
type CacheEntry struct {
	Key       string `column:"cache_key" dbtype:"TEXT NOT NULL" primary:"true"`
	Payload   string `column:"payload" dbtype:"TEXT NOT NULL"`
	ExpiresAt int64  `column:"expires_at" dbtype:"INTEGER NOT NULL" index:"true"`
	CreatedAt int64  `column:"created_at" dbtype:"INTEGER NOT NULL"`
}

func (e *CacheEntry) TableName() string { return "response_cache" }

func (e *CacheEntry) PrimaryKey() map[string]any {
	return map[string]any{"cache_key": e.Key}
}

type cacheItem struct {
	payload []byte
	expires time.Time
}

// Cache is a time-to-live response cache keyed by request signature.
// Entries are held in memory and, when a database is supplied, written through to
// sqlite so they survive a restart. Stale entries are treated as misses; there is
// no size bound.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheItem
	db      *store.DB
	now     func() time.Time
}

// NewCache creates a cache. db may be nil for a memory only cache.
func NewCache(ttl time.Duration, db *store.DB) (*Cache, error) {
	if db != nil {
		if err := db.CreateTable(&CacheEntry{}); err != nil {
			return nil, err
		}
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheItem),
		db:      db,
		now:     time.Now,
	}, nil
}

// Get decodes a fresh cached value into out and reports whether one was found
func (c *Cache) Get(key string, out any) bool {
	now := c.now()

	c.mu.RLock()
	item, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok && c.db != nil {
		entry := &CacheEntry{Key: key}
		if err := c.db.Load(entry); err == nil {
			item = cacheItem{payload: []byte(entry.Payload), expires: time.Unix(0, entry.ExpiresAt)}
			ok = true
			if now.Before(item.expires) {
				c.mu.Lock()
				c.entries[key] = item
				c.mu.Unlock()
			} else if err := c.db.Delete(entry); err != nil {
				logger.Warn("Failed to drop stale cache entry", key, err)
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("Cache lookup failed", key, err)
		}
	}

	if !ok || !now.Before(item.expires) {
		return false
	}
	if err := json.Unmarshal(item.payload, out); err != nil {
		logger.Warn("Discarding undecodable cache entry", key, err)
		return false
	}
	logger.Debug("Cache hit", key)
	return true
}

// Set stores v under key for one TTL
func (c *Cache) Set(key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Warn("Not caching unencodable value", key, err)
		return
	}
	now := c.now()
	item := cacheItem{payload: payload, expires: now.Add(c.ttl)}

	c.mu.Lock()
	c.entries[key] = item
	c.mu.Unlock()

	if c.db != nil {
		entry := &CacheEntry{
			Key:       key,
			Payload:   string(payload),
			ExpiresAt: item.expires.UnixNano(),
			CreatedAt: now.UnixNano(),
		}
		if err := c.db.Save(entry); err != nil {
			logger.Warn("Failed to persist cache entry", key, err)
		}
	}
}

// Len returns the number of entries held in memory, fresh or stale
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry from memory and from the database
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]cacheItem)
	c.mu.Unlock()

	if c.db != nil {
		if _, err := c.db.DeleteWhere(&CacheEntry{}, "1 = 1"); err != nil {
			return err
		}
	}
	logger.Info("Cache cleared")
	return nil
}

// PurgeExpired removes stale entries and returns how many were removed from memory
// and the database combined
func (c *Cache) PurgeExpired() (int, error) {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for k, item := range c.entries {
		if !now.Before(item.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if c.db != nil {
		n, err := c.db.DeleteWhere(&CacheEntry{}, "expires_at <= ?", now.UnixNano())
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	if removed > 0 {
		logger.Info("Purged expired cache entries", removed)
	}
	return removed, nil
}
