// Package flatten turns an aggregation result tree into the ordered,
// JSON-ready structure served to clients.
package flatten

import (
	"fmt"

	"github.com/kailas-cloud/aggflat/internal/domain"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/output"
)

// Flattener flattens aggregation result sets. It holds no per-call state and
// is safe for concurrent use on independent inputs.
type Flattener struct {
	diag Diagnostics
}

// New creates a Flattener. diag may be nil.
func New(diag Diagnostics) *Flattener {
	return &Flattener{diag: diag}
}

// level is the flattened form of one result set.
// solo is set when the level collapsed to a bare scalar; entries then holds
// the same value under the collapsed key.
type level struct {
	entries *output.Map
	solo    output.Value
}

// Flatten converts results into an ordered map, or into a bare Scalar when the
// top level holds a single one-number metric (directly or through a sole
// single-bucket wrapper). The input is not modified.
func (f *Flattener) Flatten(results *aggregation.Set) (output.Value, error) {
	lvl, err := f.flattenLevel(results, "")
	if err != nil {
		return nil, err
	}
	if lvl.solo != nil {
		return lvl.solo, nil
	}
	return lvl.entries, nil
}

func (f *Flattener) flattenLevel(results *aggregation.Set, path string) (level, error) {
	// A lone one-number metric collapses regardless of what a larger set would hold.
	if key, r, ok := results.Sole(); ok {
		if sv, isSingle := r.(aggregation.SingleValue); isSingle {
			v := output.Scalar(sv.Value)
			return level{entries: output.MapOf(key, v), solo: v}, nil
		}
	}

	out := output.NewMap()
	var (
		err       error
		collapsed *level
	)
	results.Range(func(key string, r aggregation.Result) bool {
		p := joinPath(path, key)
		switch r := r.(type) {
		case aggregation.SingleValue:
			out.Set(key, output.MapOf(r.Name, output.Scalar(r.Value)))
		case aggregation.MultiValue:
			var m *output.Map
			if m, err = f.multiValue(r, p); err == nil {
				out.Set(key, m)
			}
		case aggregation.Bucketed:
			var m *output.Map
			if m, err = f.buckets(r, p); err == nil {
				out.Set(key, m)
			}
		case aggregation.Wrapper:
			var inner level
			if inner, err = f.flattenLevel(r.Sub, p); err != nil {
				break
			}
			// A sole wrapper around a collapsed level stays collapsed.
			if inner.solo != nil && results.Len() == 1 {
				collapsed = &inner
				return false
			}
			out.Merge(inner.entries)
		case aggregation.Unknown:
			f.unknown(key, r.KindLabel)
		case nil:
			err = domain.NewMalformedResult(p, "missing aggregation result")
		default:
			err = domain.NewMalformedResult(p, fmt.Sprintf("unsupported result type %T", r))
		}
		return err == nil
	})
	if err != nil {
		return level{}, err
	}
	if collapsed != nil {
		return *collapsed, nil
	}
	return level{entries: out}, nil
}

func (f *Flattener) multiValue(r aggregation.MultiValue, path string) (*output.Map, error) {
	m := output.NewMap()
	switch r.Kind {
	case aggregation.Stats:
		for _, label := range aggregation.StatsLabels {
			e, ok := r.Entry(label)
			if !ok {
				return nil, domain.NewMalformedResult(path, "stats result missing "+label)
			}
			if label == aggregation.LabelCount {
				m.Set(label, output.Count(int64(e.Value)))
				continue
			}
			m.Set(label, output.Text(e.ValueAsString))
		}
	case aggregation.Percentiles, aggregation.PercentileRanks:
		for _, e := range r.Entries {
			m.Set(e.Label, output.Scalar(e.Value))
		}
	default:
		return nil, domain.NewMalformedResult(path, fmt.Sprintf("unsupported multi-value kind %q", r.Kind))
	}
	return m, nil
}

func (f *Flattener) buckets(r aggregation.Bucketed, path string) (*output.Map, error) {
	m := output.NewMap()
	for _, b := range r.Buckets {
		if !b.HasSub() {
			m.Set(b.Key, output.Count(b.DocCount))
			continue
		}
		// Only the breakdown matters once sub-aggregations exist.
		inner, err := f.flattenLevel(b.Sub, joinPath(path, b.Key))
		if err != nil {
			return nil, err
		}
		m.Set(b.Key, inner.entries)
	}
	return m, nil
}

func (f *Flattener) unknown(name, kind string) {
	if f.diag != nil {
		f.diag.UnknownAggregation(name, kind)
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
