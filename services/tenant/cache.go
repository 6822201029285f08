package tenant

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/upb/fraudshield/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	orgID      uuid.UUID
	plan       models.PlanTier
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// PlanCache is an in-memory LRU cache with TTL mapping organizations to plan tiers.
// Safe for concurrent use.
type PlanCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List // Front is most recently used
	maxSize int
	ttl     time.Duration
	clock   clockwork.Clock
	hits    uint64
	misses  uint64
}

// NewPlanCache creates a new PlanCache with the given max size and TTL.
// A nil clock uses the real clock.
func NewPlanCache(maxSize int, ttl time.Duration, clock clockwork.Clock) *PlanCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &PlanCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached plan of an organization.
// Expired entries are dropped and reported as misses.
func (c *PlanCache) Get(orgID uuid.UUID) (models.PlanTier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[orgID]
	if !exists || c.isExpired(entry) {
		c.misses++
		if exists {
			c.removeEntry(orgID)
		}
		return "", false
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.plan, true
}

// Set stores the plan of an organization
func (c *PlanCache) Set(orgID uuid.UUID, plan models.PlanTier) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[orgID]; exists {
		entry.plan = plan
		entry.insertedAt = c.clock.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		orgID:      orgID,
		plan:       plan,
		insertedAt: c.clock.Now(),
	}
	entry.element = c.lruList.PushFront(orgID)
	c.entries[orgID] = entry
}

// Invalidate removes the entry of an organization
func (c *PlanCache) Invalidate(orgID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(orgID)
}

// Clear removes all entries from the cache
func (c *PlanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (c *PlanCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []uuid.UUID
	for orgID, entry := range c.entries {
		if c.isExpired(entry) {
			expired = append(expired, orgID)
		}
	}
	for _, orgID := range expired {
		c.removeEntry(orgID)
	}
	return len(expired)
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns cache statistics
func (c *PlanCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// must be called with lock held
func (c *PlanCache) isExpired(e *cacheEntry) bool {
	return c.clock.Since(e.insertedAt) > c.ttl
}

// must be called with lock held
func (c *PlanCache) removeEntry(orgID uuid.UUID) {
	if entry, exists := c.entries[orgID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, orgID)
	}
}

// must be called with lock held
func (c *PlanCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	orgID := back.Value.(uuid.UUID)
	c.lruList.Remove(back)
	delete(c.entries, orgID)
}
