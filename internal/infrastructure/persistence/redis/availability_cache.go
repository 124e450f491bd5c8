package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
)

// PrefixAvailability namespaces seat availability snapshots in Redis.
const PrefixAvailability = "availability:"

// TTLAvailability bounds snapshot staleness. Kept short: seats move fast
// during the enrollment window and a stale count is visible to students.
const TTLAvailability = 1 * time.Minute

// AvailabilityKey builds the Redis key for a course's snapshot.
func AvailabilityKey(courseCode string) string {
	return PrefixAvailability + courseCode
}

// AvailabilityCache implements course.AvailabilityCache using the generic
// Redis Cache. Snapshots carry a short TTL so a lost invalidation heals on
// its own.
type AvailabilityCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewAvailabilityCache creates a new AvailabilityCache with the default TTL.
func NewAvailabilityCache(cache *Cache) *AvailabilityCache {
	return NewAvailabilityCacheWithTTL(cache, TTLAvailability)
}

// NewAvailabilityCacheWithTTL creates a new AvailabilityCache with a custom TTL.
func NewAvailabilityCacheWithTTL(cache *Cache, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = TTLAvailability
	}
	return &AvailabilityCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Get retrieves a seat availability snapshot.
// Returns course.ErrCourseNotFound on a cache miss.
func (a *AvailabilityCache) Get(ctx context.Context, code string) (*course.Availability, error) {
	var snap course.Availability

	err := a.cache.Get(ctx, AvailabilityKey(normalizeCacheCode(code)), &snap)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, course.ErrCourseNotFound
		}
		return nil, err
	}

	return &snap, nil
}

// Set stores a seat availability snapshot.
func (a *AvailabilityCache) Set(ctx context.Context, snap course.Availability) error {
	return a.cache.Set(ctx, AvailabilityKey(normalizeCacheCode(snap.Code)), snap, a.ttl)
}

// Invalidate removes a course's snapshot from the cache.
func (a *AvailabilityCache) Invalidate(ctx context.Context, code string) error {
	return a.cache.Delete(ctx, AvailabilityKey(normalizeCacheCode(code)))
}

// normalizeCacheCode uppercases a course code so keys are case-stable.
func normalizeCacheCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
