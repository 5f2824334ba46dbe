package aggflat

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addresses  []string
	username   string
	password   string
	apiKey     string
	timeout    time.Duration
	maxRetries *int

	cacheAddrs    []string
	cachePassword string
	cacheDriver   string
	cacheTTL      time.Duration
	cachePrefix   string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithElasticsearch sets the cluster node URLs. Requests rotate across them.
// Defaults to http://localhost:9200.
func WithElasticsearch(addresses ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addresses = append(c.addresses, addresses...)
	})
}

// WithBasicAuth authenticates with a username and password.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithAPIKey authenticates with an encoded Elasticsearch API key.
// Takes precedence over WithBasicAuth.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithTimeout bounds each search request. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithMaxRetries sets how often transport failures and 429/503/504 replies are retried.
// Zero disables retries. Default: 3.
func WithMaxRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetries = &n
	})
}

// WithCache caches raw search responses in Valkey or Redis for ttl.
func WithCache(addrs []string, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = addrs
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithCacheDriver selects "valkey" (default, RESP3) or "redis" (RESP2,
// for servers older than 6.0).
func WithCacheDriver(driver string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = driver
	})
}

// WithCachePrefix sets the cache key prefix. Default: "aggflat:".
func WithCachePrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cachePrefix = prefix
	})
}

// WithLogger enables structured logging for SDK operations. Warnings from
// the search transport and the response cache are forwarded to it as well.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
