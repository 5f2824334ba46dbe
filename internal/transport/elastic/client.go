package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aggflat/internal/domain"
	"github.com/kailas-cloud/aggflat/internal/metrics"
)

// Defaults applied by NewClient.
const (
	DefaultAddress      = "http://localhost:9200"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 100 * time.Millisecond

	maxErrorBody = 4096
)

// retryStatuses are the answers of a busy cluster worth another attempt.
var retryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// Config holds the search backend settings.
// A negative MaxRetries disables retries.
type Config struct {
	Addresses    []string
	Username     string
	Password     string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Transport    http.RoundTripper
	Logger       *zap.Logger
}

// Client runs aggregation searches against Elasticsearch or OpenSearch.
// Node selection and retries are handled by the opensearch-go transport.
type Client struct {
	api          *opensearch.Client
	addresses    []string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewClient creates a search client. Zero-valued settings take the package defaults.
func NewClient(cfg *Config) (*Client, error) {
	addrs := make([]string, 0, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		a = strings.TrimRight(strings.TrimSpace(a), "/")
		if a == "" {
			continue
		}
		if _, err := url.ParseRequestURI(a); err != nil {
			return nil, fmt.Errorf("invalid search address %q: %w", a, err)
		}
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		addrs = []string{DefaultAddress}
	}

	c := &Client{
		addresses:    addrs,
		timeout:      cfg.Timeout,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = DefaultRetryBackoff
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	osCfg := opensearch.Config{
		Addresses:     addrs,
		Transport:     cfg.Transport,
		RetryOnStatus: retryStatuses,
		DisableRetry:  c.maxRetries < 0,
		MaxRetries:    max(c.maxRetries, 0),
		RetryBackoff: func(attempt int) time.Duration {
			return c.retryBackoff * time.Duration(attempt)
		},
	}
	if cfg.APIKey != "" {
		osCfg.Header = http.Header{"Authorization": {"ApiKey " + cfg.APIKey}}
	} else {
		osCfg.Username = cfg.Username
		osCfg.Password = cfg.Password
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	c.api = client
	return c, nil
}

// Search runs an aggregation search against indices and returns the raw response body.
// Result keys carry their aggregation type ("sterms#name").
func (c *Client) Search(ctx context.Context, indices []string, body []byte) ([]byte, error) {
	typedKeys, size := true, 0
	req := opensearchapi.SearchRequest{
		Index:     indices,
		Body:      bytes.NewReader(body),
		TypedKeys: &typedKeys,
		Size:      &size,
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := req.Do(reqCtx, c.api)
	metrics.SearchRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, c.transportError(ctx, err, indices)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, parseError(resp.StatusCode, resp.Body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read search response: %v: %w", err, domain.ErrSearchBackend)
	}
	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	return data, nil
}

// Ping verifies the cluster answers on its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := opensearchapi.InfoRequest{}.Do(reqCtx, c.api)
	if err != nil {
		return c.transportError(ctx, err, nil)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return parseError(resp.StatusCode, resp.Body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// transportError keeps caller cancellation visible and maps every other
// transport failure onto ErrSearchBackend.
func (c *Client) transportError(ctx context.Context, err error, indices []string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("search request: %w", ctxErr)
	}
	c.logger.Warn("Search request failed",
		zap.Strings("indices", indices), zap.Strings("nodes", c.addresses), zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("search request timed out after %s: %w", c.timeout, domain.ErrSearchBackend)
	}
	return fmt.Errorf("search backend unreachable: %v: %w", err, domain.ErrSearchBackend)
}

// errorBody is the Elasticsearch error envelope.
type errorBody struct {
	Error struct {
		Type      string `json:"type"`
		Reason    string `json:"reason"`
		RootCause []struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"root_cause"`
	} `json:"error"`
}

// parseError maps an Elasticsearch error response onto domain sentinels.
func parseError(status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("search backend rejected credentials (status %d): %w",
			status, domain.ErrUnauthorized)
	}

	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error.Type != "" {
		typ, reason := eb.Error.Type, eb.Error.Reason
		if len(eb.Error.RootCause) > 0 && eb.Error.RootCause[0].Type != "" {
			typ, reason = eb.Error.RootCause[0].Type, eb.Error.RootCause[0].Reason
		}
		switch {
		case typ == "index_not_found_exception" || eb.Error.Type == "index_not_found_exception":
			return fmt.Errorf("%s: %w", reason, domain.ErrIndexNotFound)
		case isRequestError(typ) || isRequestError(eb.Error.Type):
			return fmt.Errorf("%s: %s: %w", typ, reason, domain.ErrInvalidRequest)
		}
		return fmt.Errorf("%s: %s (status %d): %w", typ, reason, status, domain.ErrSearchBackend)
	}

	if status == http.StatusNotFound {
		return fmt.Errorf("not found: %w", domain.ErrIndexNotFound)
	}
	return fmt.Errorf("request failed with status %d: %s: %w",
		status, bytes.TrimSpace(raw), domain.ErrSearchBackend)
}

func isRequestError(typ string) bool {
	switch typ {
	case "parsing_exception", "x_content_parse_exception", "search_phase_execution_exception",
		"illegal_argument_exception", "query_shard_exception", "aggregation_execution_exception":
		return true
	}
	return false
}
