package engine

import (
	"context"
	"fmt"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/pkg/redis"
)

// LatestCache keeps each source's newest assessment in Redis so other
// processes (and this one after a restart) can answer "latest" queries
type LatestCache struct {
	cache *redis.Cache
}

// NewLatestCache wraps a redis cache helper
func NewLatestCache(cache *redis.Cache) *LatestCache {
	return &LatestCache{cache: cache}
}

// Name identifies the cache as a dispatcher sink
func (c *LatestCache) Name() string {
	return "latest-assessment-cache"
}

// Handle stores the assessment under the source's latest key
func (c *LatestCache) Handle(ctx context.Context, a contracts.RiskAssessment) error {
	if err := c.cache.Set(ctx, redis.LatestAssessmentKey(a.Source), a, redis.TTLLong); err != nil {
		return fmt.Errorf("cache latest assessment for %s: %w", a.Source, err)
	}
	return nil
}

// Get loads the cached latest assessment
func (c *LatestCache) Get(ctx context.Context, source string) (contracts.RiskAssessment, bool, error) {
	var a contracts.RiskAssessment
	found, err := c.cache.Get(ctx, redis.LatestAssessmentKey(source), &a)
	if err != nil {
		return a, false, fmt.Errorf("load latest assessment for %s: %w", source, err)
	}
	return a, found, nil
}
