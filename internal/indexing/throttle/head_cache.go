package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/infra/chain"
)

// HeadCache caches LatestHeight to reduce redundant API calls from frequent
// probes such as health checks. Block retrieval is passed through.
type HeadCache struct {
	client chain.Client
	ttl    time.Duration

	mu       sync.RWMutex
	cached   uint64
	cachedAt time.Time
}

// NewHeadCache creates a new head cache with the given TTL.
func NewHeadCache(client chain.Client, ttl time.Duration) *HeadCache {
	return &HeadCache{
		client: client,
		ttl:    ttl,
	}
}

// LatestHeight returns the cached chain head if within TTL, otherwise fetches fresh.
func (c *HeadCache) LatestHeight(ctx context.Context) (uint64, error) {
	c.mu.RLock()
	if !c.cachedAt.IsZero() && time.Since(c.cachedAt) < c.ttl {
		cached := c.cached
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	head, err := c.client.LatestHeight(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.cached = head
	c.cachedAt = time.Now()
	c.mu.Unlock()

	return head, nil
}

// GetBlock fetches a block without caching.
func (c *HeadCache) GetBlock(ctx context.Context, blockNumber uint64) (*domain.Block, error) {
	return c.client.GetBlock(ctx, blockNumber)
}

// Health reports whether the chain head can be read.
func (c *HeadCache) Health(ctx context.Context) error {
	_, err := c.LatestHeight(ctx)
	return err
}

// Invalidate clears the cache, forcing the next call to fetch fresh data.
func (c *HeadCache) Invalidate() {
	c.mu.Lock()
	c.cachedAt = time.Time{}
	c.mu.Unlock()
}
