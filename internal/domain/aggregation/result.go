// Package aggregation models computed aggregation results as a closed set of
// variants. Values are built by the search collaborator and consumed once.
package aggregation

import "strconv"

// Result is one node of an aggregation result tree.
// Implemented only by SingleValue, MultiValue, Bucketed, Wrapper and Unknown.
type Result interface {
	// AggregationName is the name the aggregation declared for itself.
	AggregationName() string
	isResult()
}

// SingleValue is a one-number metric (sum, min, max, avg, value_count, cardinality).
type SingleValue struct {
	Name          string
	Value         float64
	ValueAsString string
}

// AggregationName implements Result.
func (r SingleValue) AggregationName() string { return r.Name }
func (SingleValue) isResult() {}

// MultiKind distinguishes multi-value metric aggregations.
type MultiKind string

// Multi-value metric kinds.
const (
	Stats           MultiKind = "stats"
	Percentiles     MultiKind = "percentiles"
	PercentileRanks MultiKind = "percentile_ranks"
)

// IsValid checks if the kind is one of the supported values.
func (k MultiKind) IsValid() bool {
	return k == Stats || k == Percentiles || k == PercentileRanks
}

// Fixed Stats entry labels, in output order.
const (
	LabelCount = "count"
	LabelMin   = "min"
	LabelMax   = "max"
	LabelAvg   = "avg"
	LabelSum   = "sum"
)

// StatsLabels lists the Stats entry labels in output order.
var StatsLabels = []string{LabelCount, LabelMin, LabelMax, LabelAvg, LabelSum}

// MetricEntry is one labeled value of a multi-value metric.
type MetricEntry struct {
	Label         string
	Value         float64
	ValueAsString string
}

// MultiValue is a metric producing several labeled values (stats, percentiles).
type MultiValue struct {
	Name    string
	Kind    MultiKind
	Entries []MetricEntry
}

// AggregationName implements Result.
func (r MultiValue) AggregationName() string { return r.Name }
func (MultiValue) isResult() {}

// Entry returns the first entry with the given label.
func (r MultiValue) Entry(label string) (MetricEntry, bool) {
	for _, e := range r.Entries {
		if e.Label == label {
			return e, true
		}
	}
	return MetricEntry{}, false
}

// NewStats builds a Stats result. min, max, avg and sum are carried as the
// engine formatted them.
func NewStats(name string, count int64, minV, maxV, avgV, sumV string) MultiValue {
	return MultiValue{
		Name: name,
		Kind: Stats,
		Entries: []MetricEntry{
			{Label: LabelCount, Value: float64(count), ValueAsString: strconv.FormatInt(count, 10)},
			{Label: LabelMin, ValueAsString: minV},
			{Label: LabelMax, ValueAsString: maxV},
			{Label: LabelAvg, ValueAsString: avgV},
			{Label: LabelSum, ValueAsString: sumV},
		},
	}
}

// Bucket is one partition of a bucketed aggregation.
type Bucket struct {
	Key      string
	DocCount int64
	// Sub may be nil when the bucket has no sub-aggregations.
	Sub *Set
}

// HasSub reports whether the bucket carries sub-aggregation results.
func (b Bucket) HasSub() bool { return b.Sub.Len() > 0 }

// Bucketed is a multi-bucket grouping aggregation (terms, histogram, range, ...).
type Bucketed struct {
	Name    string
	Buckets []Bucket
}

// AggregationName implements Result.
func (r Bucketed) AggregationName() string { return r.Name }
func (Bucketed) isResult() {}

// Wrapper is a single-bucket aggregation (filter, nested, children, ...)
// whose sub-results belong to the enclosing level.
type Wrapper struct {
	Name     string
	DocCount int64
	Sub      *Set
}

// AggregationName implements Result.
func (r Wrapper) AggregationName() string { return r.Name }
func (Wrapper) isResult() {}

// Unknown is an aggregation kind aggflat does not interpret.
type Unknown struct {
	Name      string
	KindLabel string
}

// AggregationName implements Result.
func (r Unknown) AggregationName() string { return r.Name }
func (Unknown) isResult() {}
