package aggflat

import (
	"context"

	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/output"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
)

// Aggregation result model.
type (
	Result      = domagg.Result
	SingleValue = domagg.SingleValue
	MultiValue  = domagg.MultiValue
	MultiKind   = domagg.MultiKind
	MetricEntry = domagg.MetricEntry
	Bucketed    = domagg.Bucketed
	Bucket      = domagg.Bucket
	Wrapper     = domagg.Wrapper
	Unknown     = domagg.Unknown
	Set         = domagg.Set
	Entry       = domagg.Entry
)

// Multi-value metric kinds.
const (
	Stats           = domagg.Stats
	Percentiles     = domagg.Percentiles
	PercentileRanks = domagg.PercentileRanks
)

// Flattened output model.
type (
	Value  = output.Value
	Map    = output.Map
	Scalar = output.Scalar
	Text   = output.Text
	Count  = output.Count
)

// NewSet builds an ordered result set.
func NewSet(entries ...Entry) *Set { return domagg.NewSet(entries...) }

// Named pairs a result with its aggregation name.
func Named(name string, r Result) Entry { return domagg.Named(name, r) }

// NewStats builds a stats result from already formatted values.
func NewStats(name string, count int64, minV, maxV, avgV, sumV string) MultiValue {
	return domagg.NewStats(name, count, minV, maxV, avgV, sumV)
}

// WithoutCache marks ctx so Client.Aggregate neither reads nor writes the response cache.
func WithoutCache(ctx context.Context) context.Context {
	return request.WithoutCache(ctx)
}
