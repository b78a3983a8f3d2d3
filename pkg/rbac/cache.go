package rbac

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCacheSize bounds the number of cached answers.
const DefaultCacheSize = 4096

// CachingEvaluator memoizes evaluator answers with a TTL. Membership changes
// take up to one TTL to become visible, so keep the TTL short. Disabled in
// configuration by default.
type CachingEvaluator struct {
	inner  Evaluator
	cache  *lru.LRU[string, bool]
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewCachingEvaluator wraps an evaluator with an expiring LRU cache. The hit
// and miss counters may be nil.
func NewCachingEvaluator(inner Evaluator, ttl time.Duration, hits, misses prometheus.Counter) *CachingEvaluator {
	return &CachingEvaluator{
		inner:  inner,
		cache:  lru.NewLRU[string, bool](DefaultCacheSize, nil, ttl),
		hits:   hits,
		misses: misses,
	}
}

func (c *CachingEvaluator) lookup(key string, fetch func() (bool, error)) (bool, error) {
	if ok, found := c.cache.Get(key); found {
		if c.hits != nil {
			c.hits.Inc()
		}
		return ok, nil
	}
	if c.misses != nil {
		c.misses.Inc()
	}

	ok, err := fetch()
	if err != nil {
		return false, err
	}
	c.cache.Add(key, ok)
	return ok, nil
}

func (c *CachingEvaluator) HasRoleInOrganization(ctx context.Context, userID, orgID int64, role Role) (bool, error) {
	key := fmt.Sprintf("u%d:role:%d:%s", userID, orgID, role)
	return c.lookup(key, func() (bool, error) {
		return c.inner.HasRoleInOrganization(ctx, userID, orgID, role)
	})
}

func (c *CachingEvaluator) HasRoleAnywhere(ctx context.Context, userID int64, role Role) (bool, error) {
	key := fmt.Sprintf("u%d:anywhere:%s", userID, role)
	return c.lookup(key, func() (bool, error) {
		return c.inner.HasRoleAnywhere(ctx, userID, role)
	})
}

func (c *CachingEvaluator) CanAccessOrganization(ctx context.Context, userID, orgID int64) (bool, error) {
	key := fmt.Sprintf("u%d:access:%d", userID, orgID)
	return c.lookup(key, func() (bool, error) {
		return c.inner.CanAccessOrganization(ctx, userID, orgID)
	})
}

// OrganizationsWithRole is not memoized; the cache stores boolean answers
// only.
func (c *CachingEvaluator) OrganizationsWithRole(ctx context.Context, userID int64, role Role) ([]int64, error) {
	return c.inner.OrganizationsWithRole(ctx, userID, role)
}

// InvalidateUser drops every cached answer for the user. Called after
// membership changes so revocations apply without waiting out the TTL.
func (c *CachingEvaluator) InvalidateUser(userID int64) {
	prefix := fmt.Sprintf("u%d:", userID)
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
}
