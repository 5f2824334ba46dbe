package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aggflat/internal/db"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
)

// KeySegment follows the configured key prefix in every cache key.
const KeySegment = "agg:"

// searcher is the wrapped search backend.
type searcher interface {
	Search(ctx context.Context, indices []string, body []byte) ([]byte, error)
}

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedSearcher caches raw search responses in a key-value store.
type CachedSearcher struct {
	inner      searcher
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner searcher,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSearcher{
		inner:      inner,
		store:      s,
		prefix:     prefix + KeySegment,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Search returns a cached response or calls the inner searcher.
// Contexts marked with request.WithoutCache skip the cache entirely.
func (c *CachedSearcher) Search(ctx context.Context, indices []string, body []byte) ([]byte, error) {
	if request.CacheDisabled(ctx) {
		return c.search(ctx, indices, body)
	}

	key := c.cacheKey(indices, body)
	if data, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return data, nil
	}
	c.incCache("miss")

	data, err := c.search(ctx, indices, body)
	if err != nil {
		return nil, err
	}
	c.putToCache(ctx, key, data)
	return data, nil
}

func (c *CachedSearcher) search(ctx context.Context, indices []string, body []byte) ([]byte, error) {
	data, err := c.inner.Search(ctx, indices, body)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return data, nil
}

// Invalidate drops the cached response for indices and body, if any.
func (c *CachedSearcher) Invalidate(ctx context.Context, indices []string, body []byte) error {
	if err := c.store.Del(ctx, c.cacheKey(indices, body)); err != nil {
		return fmt.Errorf("invalidate cached response: %w", err)
	}
	return nil
}

func (c *CachedSearcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSearcher) cacheKey(indices []string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(indices, ",")))
	h.Write([]byte{'|'})
	h.Write(body)
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedSearcher) getFromCache(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached search response", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *CachedSearcher) putToCache(ctx context.Context, key string, data []byte) {
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache search response", zap.String("key", key), zap.Error(err))
	}
}
