package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aggflat/internal/domain"
	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/output"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
	"github.com/kailas-cloud/aggflat/internal/logger"
)

// Flatten outcomes recorded on the outcome counter.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Service runs aggregations and flattens their results.
type Service struct {
	repo      Repository
	flattener Flattener
	outcomes  *prometheus.CounterVec
}

// New creates an aggregation service.
// outcomes is a counter vec with label "outcome", passed explicitly; it may be nil.
func New(repo Repository, f Flattener, outcomes *prometheus.CounterVec) *Service {
	return &Service{repo: repo, flattener: f, outcomes: outcomes}
}

// Aggregate runs req against the search backend and flattens the results.
func (s *Service) Aggregate(ctx context.Context, req *request.Request) (output.Value, error) {
	start := time.Now()

	set, err := s.repo.Run(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedResult) {
			s.record(OutcomeMalformed)
		}
		return nil, fmt.Errorf("run aggregation: %w", err)
	}

	out, err := s.flatten(ctx, set)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("Aggregation completed",
		zap.Strings("indices", req.Indices()),
		zap.Int("results", set.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// FlattenResponse flattens a search response (or a bare aggregations object)
// supplied by the caller.
func (s *Service) FlattenResponse(ctx context.Context, raw []byte) (output.Value, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrInvalidRequest)
	}

	set, err := s.repo.Decode(raw)
	if err != nil {
		s.record(OutcomeMalformed)
		logger.FromContext(ctx).Warn("Failed to decode aggregation response", zap.Error(err))
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return s.flatten(ctx, set)
}

func (s *Service) flatten(ctx context.Context, set *domagg.Set) (output.Value, error) {
	out, err := s.flattener.Flatten(set)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedResult) {
			s.record(OutcomeMalformed)
		} else {
			s.record(OutcomeError)
		}
		logger.FromContext(ctx).Warn("Failed to flatten aggregations", zap.Error(err))
		return nil, fmt.Errorf("flatten: %w", err)
	}
	s.record(OutcomeOK)
	return out, nil
}

func (s *Service) record(outcome string) {
	if s.outcomes != nil {
		s.outcomes.WithLabelValues(outcome).Inc()
	}
}
