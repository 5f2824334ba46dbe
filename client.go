package aggflat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/aggflat/internal/db"
	"github.com/kailas-cloud/aggflat/internal/domain"
	dbRedis "github.com/kailas-cloud/aggflat/internal/db/redis"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
	aggrepo "github.com/kailas-cloud/aggflat/internal/repository/aggregation"
	"github.com/kailas-cloud/aggflat/internal/repository/respcache"
	"github.com/kailas-cloud/aggflat/internal/transport/elastic"
	aggregateuc "github.com/kailas-cloud/aggflat/internal/usecase/aggregate"
	"github.com/kailas-cloud/aggflat/internal/usecase/flatten"
	healthuc "github.com/kailas-cloud/aggflat/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = time.Minute
)

// HealthReport is the outcome of Client.Health.
type HealthReport = healthuc.Report

// Internal interfaces for substitution in tests.
type aggregateUseCase interface {
	Aggregate(ctx context.Context, req *request.Request) (Value, error)
	FlattenResponse(ctx context.Context, raw []byte) (Value, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type invalidator interface {
	Invalidate(ctx context.Context, indices []string, body []byte) error
}

// Client runs aggregation searches and flattens their results.
type Client struct {
	store     db.Store
	cache     invalidator
	aggSvc    aggregateUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. When WithCache is given, the provided context
// bounds the initial cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	internal := newInternalLogger(cfg.logger)
	esCfg := &elastic.Config{
		Addresses: cfg.addresses,
		Username:  cfg.username,
		Password:  cfg.password,
		APIKey:    cfg.apiKey,
		Timeout:   cfg.timeout,
		Logger:    internal.Named("search"),
	}
	if cfg.maxRetries != nil {
		esCfg.MaxRetries = *cfg.maxRetries
		if esCfg.MaxRetries == 0 {
			esCfg.MaxRetries = -1
		}
	}
	es, err := elastic.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("aggflat: create search client: %w", err)
	}

	c := &Client{obs: obs}
	var searcher aggrepo.Searcher = es
	var cachePinger healthuc.Pinger

	if len(cfg.cacheAddrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Driver:   cfg.cacheDriver,
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("aggflat: create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("aggflat: cache not ready: %w", err)
		}

		ttl := cfg.cacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		prefix := cfg.cachePrefix
		if prefix == "" {
			prefix = domain.KeyPrefix
		}
		cached := respcache.New(es, store, prefix, ttl, nil, internal.Named("cache"))

		searcher = cached
		cachePinger = store
		c.store = store
		c.cache = cached
	}

	c.aggSvc = aggregateuc.New(aggrepo.New(searcher), flatten.New(obs), nil)
	c.healthSvc = healthuc.New(es, cachePinger)
	return c, nil
}

// Aggregate runs aggs (and the optional query) against indices and returns
// the flattened result.
func (c *Client) Aggregate(ctx context.Context, indices []string, aggs, query json.RawMessage) (Value, error) {
	start := time.Now()
	out, err := c.aggregate(ctx, indices, aggs, query)
	c.obs.observe("aggregate", start, err)
	return out, err
}

func (c *Client) aggregate(ctx context.Context, indices []string, aggs, query json.RawMessage) (Value, error) {
	req, err := request.New(indices, aggs, query)
	if err != nil {
		return nil, fmt.Errorf("aggflat: %w: %v", ErrInvalidRequest, err)
	}
	out, err := c.aggSvc.Aggregate(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("aggflat: aggregate: %w", err)
	}
	return out, nil
}

// FlattenResponse flattens a search response body fetched elsewhere.
func (c *Client) FlattenResponse(ctx context.Context, raw []byte) (Value, error) {
	start := time.Now()
	out, err := c.aggSvc.FlattenResponse(ctx, raw)
	if err != nil {
		err = fmt.Errorf("aggflat: flatten response: %w", err)
	}
	c.obs.observe("flatten_response", start, err)
	return out, err
}

// Invalidate drops the cached response for the given request.
// It is a no-op when the client has no cache.
func (c *Client) Invalidate(ctx context.Context, indices []string, aggs, query json.RawMessage) error {
	if c.cache == nil {
		return nil
	}
	req, err := request.New(indices, aggs, query)
	if err != nil {
		return fmt.Errorf("aggflat: %w: %v", ErrInvalidRequest, err)
	}
	if err := c.cache.Invalidate(ctx, req.Indices(), req.Body()); err != nil {
		return fmt.Errorf("aggflat: %w", err)
	}
	return nil
}

// Health checks the search backend and, if configured, the cache.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.healthSvc.Check(ctx)
}

// Close releases the cache connection, if any.
func (c *Client) Close() error {
	if c.store == nil {
		return nil
	}
	c.store.Close()
	c.store = nil
	return nil
}

// Ping reports an error unless every component is healthy.
func (c *Client) Ping(ctx context.Context) error {
	report := c.Health(ctx)
	if report.Status == healthuc.Healthy {
		return nil
	}
	return fmt.Errorf("aggflat: %s: %v", report.Status, report.Checks)
}
