package tenant

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/upb/fraudshield/models"
)

func TestPlanCache_GetSet(t *testing.T) {
	cache := NewPlanCache(10, 5*time.Minute, clockwork.NewFakeClock())
	orgID := uuid.New()

	_, ok := cache.Get(orgID)
	assert.False(t, ok)

	cache.Set(orgID, models.PlanPro)
	plan, ok := cache.Get(orgID)
	assert.True(t, ok)
	assert.Equal(t, models.PlanPro, plan)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestPlanCache_TTLExpiration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewPlanCache(10, time.Minute, clock)
	orgID := uuid.New()

	cache.Set(orgID, models.PlanLite)

	clock.Advance(time.Minute)
	_, ok := cache.Get(orgID)
	assert.True(t, ok, "entry is still valid at exactly the TTL")

	clock.Advance(time.Second)
	_, ok = cache.Get(orgID)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestPlanCache_SetRefreshesTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewPlanCache(10, time.Minute, clock)
	orgID := uuid.New()

	cache.Set(orgID, models.PlanLite)
	clock.Advance(50 * time.Second)
	cache.Set(orgID, models.PlanStandard)
	clock.Advance(50 * time.Second)

	plan, ok := cache.Get(orgID)
	assert.True(t, ok)
	assert.Equal(t, models.PlanStandard, plan)
	assert.Equal(t, 1, cache.Stats().Size)
}

func TestPlanCache_LRUEviction(t *testing.T) {
	cache := NewPlanCache(2, time.Hour, clockwork.NewFakeClock())
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	cache.Set(a, models.PlanLite)
	cache.Set(b, models.PlanStandard)

	// Touch a so b becomes least recently used
	_, _ = cache.Get(a)
	cache.Set(c, models.PlanPro)

	_, ok := cache.Get(b)
	assert.False(t, ok)
	_, ok = cache.Get(a)
	assert.True(t, ok)
	_, ok = cache.Get(c)
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Stats().Size)
}

func TestPlanCache_InvalidateAndClear(t *testing.T) {
	cache := NewPlanCache(10, time.Hour, nil)
	a, b := uuid.New(), uuid.New()

	cache.Set(a, models.PlanLite)
	cache.Set(b, models.PlanPro)

	cache.Invalidate(a)
	_, ok := cache.Get(a)
	assert.False(t, ok)

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestPlanCache_CleanupExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewPlanCache(10, time.Minute, clock)

	cache.Set(uuid.New(), models.PlanLite)
	cache.Set(uuid.New(), models.PlanPro)
	clock.Advance(2 * time.Minute)
	cache.Set(uuid.New(), models.PlanStandard)

	assert.Equal(t, 2, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Stats().Size)
}

func TestPlanCache_ConcurrentAccess(t *testing.T) {
	cache := NewPlanCache(16, time.Hour, nil)
	ids := make([]uuid.UUID, 32)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range ids {
				cache.Set(id, models.PlanLite)
				_, _ = cache.Get(id)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().Size, 16)
}
