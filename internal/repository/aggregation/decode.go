package aggregation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kailas-cloud/aggflat/internal/domain"
	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
)

// object is a JSON object decoded with its key order intact.
type object = orderedmap.OrderedMap[string, json.RawMessage]

// responseMarkers identify a full search response without aggregations.
var responseMarkers = []string{"took", "timed_out", "_shards", "hits"}

// objectFields are bucket and wrapper fields whose values may be JSON objects
// without being sub-aggregations. Scalar bucket fields (doc_count, from, to,
// score, ...) need no entry: untyped keys only count when they hold an object,
// so an untyped sub-aggregation may be named "from" or "score". Untyped
// sub-aggregations named like an entry here cannot be told apart and are
// skipped; typed_keys responses have no such limitation.
var objectFields = map[string]struct{}{
	"key":       {},
	"meta":      {},
	"after_key": {},
}

// DecodeResponse decodes the aggregations of a search response.
// data may be the full response or only its "aggregations" object.
func DecodeResponse(data []byte) (*domagg.Set, error) {
	top, err := parseObject(data, "")
	if err != nil {
		return nil, err
	}
	if raw, ok := top.Get("aggregations"); ok {
		return DecodeAggregations(raw)
	}
	for _, k := range responseMarkers {
		if _, ok := top.Get(k); ok {
			return domagg.NewSet(), nil
		}
	}
	return setFromObject(top, "")
}

// DecodeAggregations decodes an aggregations object keyed by name or by
// "type#name" (typed_keys).
func DecodeAggregations(data []byte) (*domagg.Set, error) {
	if isNull(data) {
		return domagg.NewSet(), nil
	}
	obj, err := parseObject(data, "")
	if err != nil {
		return nil, err
	}
	return setFromObject(obj, "")
}

func setFromObject(obj *object, path string) (*domagg.Set, error) {
	set := domagg.NewSet()
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		kind, name := splitTypedKey(pair.Key)
		r, err := decodeResult(kind, name, pair.Value, joinPath(path, name))
		if err != nil {
			return nil, err
		}
		set.Put(name, r)
	}
	return set, nil
}

func decodeResult(kind, name string, raw json.RawMessage, path string) (domagg.Result, error) {
	obj, err := parseObject(raw, path)
	if err != nil {
		return nil, err
	}

	var cat category
	label := kind
	if kind != "" {
		cat = typedKinds[kind]
	} else {
		cat = inferCategory(obj)
		label = untypedKind
	}

	switch cat {
	case categorySingle:
		return decodeSingle(name, obj, path)
	case categoryStats:
		return decodeStats(name, obj, path)
	case categoryPercentiles:
		return decodePercentiles(name, domagg.Percentiles, obj, path)
	case categoryPercentileRanks:
		return decodePercentiles(name, domagg.PercentileRanks, obj, path)
	case categoryBucketed:
		return decodeBucketed(name, obj, path)
	case categoryWrapper:
		return decodeWrapper(name, obj, path)
	default:
		return domagg.Unknown{Name: name, KindLabel: label}, nil
	}
}

// inferCategory guesses the kind of a result decoded without typed_keys.
func inferCategory(obj *object) category {
	if _, ok := obj.Get("buckets"); ok {
		return categoryBucketed
	}
	if hasAll(obj, domagg.StatsLabels...) {
		return categoryStats
	}
	if _, ok := obj.Get("values"); ok {
		return categoryPercentiles
	}
	if v, ok := obj.Get("value"); ok && isNumeric(v) {
		return categorySingle
	}
	if _, ok := obj.Get("doc_count"); ok {
		return categoryWrapper
	}
	return categoryUnknown
}

func decodeSingle(name string, obj *object, path string) (domagg.Result, error) {
	raw, ok := obj.Get("value")
	if !ok {
		return nil, domain.NewMalformedResult(path, "metric result missing value")
	}
	v, err := parseDouble(raw, math.NaN())
	if err != nil {
		return nil, domain.NewMalformedResult(path, err.Error())
	}
	sv := domagg.SingleValue{Name: name, Value: v}
	if s, ok := stringField(obj, "value_as_string"); ok {
		sv.ValueAsString = s
	} else {
		sv.ValueAsString = formatDouble(v)
	}
	return sv, nil
}

// statsDefaults are the values an empty stats result reports as null.
var statsDefaults = map[string]float64{
	domagg.LabelMin: math.Inf(1),
	domagg.LabelMax: math.Inf(-1),
	domagg.LabelAvg: math.NaN(),
	domagg.LabelSum: 0,
}

func decodeStats(name string, obj *object, path string) (domagg.Result, error) {
	countRaw, ok := obj.Get(domagg.LabelCount)
	if !ok {
		return nil, domain.NewMalformedResult(path, "stats result missing count")
	}
	count, err := parseCount(countRaw)
	if err != nil {
		return nil, domain.NewMalformedResult(path, err.Error())
	}

	entries := make([]domagg.MetricEntry, 0, len(domagg.StatsLabels))
	entries = append(entries, domagg.MetricEntry{
		Label: domagg.LabelCount, Value: float64(count), ValueAsString: strconv.FormatInt(count, 10),
	})
	for _, label := range domagg.StatsLabels[1:] {
		raw, ok := obj.Get(label)
		if !ok {
			return nil, domain.NewMalformedResult(path, "stats result missing "+label)
		}
		v, err := parseDouble(raw, statsDefaults[label])
		if err != nil {
			return nil, domain.NewMalformedResult(path, label+": "+err.Error())
		}
		text, ok := stringField(obj, label+"_as_string")
		if !ok {
			text = formatDouble(v)
		}
		entries = append(entries, domagg.MetricEntry{Label: label, Value: v, ValueAsString: text})
	}
	return domagg.MultiValue{Name: name, Kind: domagg.Stats, Entries: entries}, nil
}

func decodePercentiles(name string, kind domagg.MultiKind, obj *object, path string) (domagg.Result, error) {
	raw, ok := obj.Get("values")
	if !ok {
		return nil, domain.NewMalformedResult(path, "percentiles result missing values")
	}
	mv := domagg.MultiValue{Name: name, Kind: kind}

	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) > 0 && raw[0] == '{':
		values, err := parseObject(raw, path)
		if err != nil {
			return nil, err
		}
		for pair := values.Oldest(); pair != nil; pair = pair.Next() {
			if strings.HasSuffix(pair.Key, "_as_string") {
				continue
			}
			v, err := parseDouble(pair.Value, math.NaN())
			if err != nil {
				return nil, domain.NewMalformedResult(path, pair.Key+": "+err.Error())
			}
			text, _ := stringField(values, pair.Key+"_as_string")
			mv.Entries = append(mv.Entries, domagg.MetricEntry{Label: pair.Key, Value: v, ValueAsString: text})
		}
	case len(raw) > 0 && raw[0] == '[':
		var items []struct {
			Key           float64  `json:"key"`
			Value         *float64 `json:"value"`
			ValueAsString string   `json:"value_as_string"`
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, domain.NewMalformedResult(path, "invalid percentile values: "+err.Error())
		}
		for _, it := range items {
			v := math.NaN()
			if it.Value != nil {
				v = *it.Value
			}
			mv.Entries = append(mv.Entries, domagg.MetricEntry{
				Label: formatDouble(it.Key), Value: v, ValueAsString: it.ValueAsString,
			})
		}
	case isNull(raw):
	default:
		return nil, domain.NewMalformedResult(path, "percentile values must be an object or an array")
	}
	return mv, nil
}

func decodeBucketed(name string, obj *object, path string) (domagg.Result, error) {
	raw, ok := obj.Get("buckets")
	if !ok {
		return nil, domain.NewMalformedResult(path, "bucket aggregation missing buckets")
	}
	out := domagg.Bucketed{Name: name}

	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) > 0 && raw[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, domain.NewMalformedResult(path, "invalid buckets: "+err.Error())
		}
		out.Buckets = make([]domagg.Bucket, 0, len(items))
		for _, item := range items {
			b, err := decodeBucket("", item, path)
			if err != nil {
				return nil, err
			}
			out.Buckets = append(out.Buckets, b)
		}
	case len(raw) > 0 && raw[0] == '{':
		keyed, err := parseObject(raw, path)
		if err != nil {
			return nil, err
		}
		out.Buckets = make([]domagg.Bucket, 0, keyed.Len())
		for pair := keyed.Oldest(); pair != nil; pair = pair.Next() {
			b, err := decodeBucket(pair.Key, pair.Value, path)
			if err != nil {
				return nil, err
			}
			out.Buckets = append(out.Buckets, b)
		}
	default:
		return nil, domain.NewMalformedResult(path, "buckets must be an array or an object")
	}
	return out, nil
}

// decodeBucket decodes one bucket; key is empty for array buckets.
func decodeBucket(key string, raw json.RawMessage, path string) (domagg.Bucket, error) {
	obj, err := parseObject(raw, path)
	if err != nil {
		return domagg.Bucket{}, err
	}
	if key == "" {
		if key, err = bucketKey(obj, path); err != nil {
			return domagg.Bucket{}, err
		}
	}
	bpath := joinPath(path, key)

	docCount, err := docCountOf(obj, bpath)
	if err != nil {
		return domagg.Bucket{}, err
	}
	sub, err := subAggregations(obj, bpath)
	if err != nil {
		return domagg.Bucket{}, err
	}
	return domagg.Bucket{Key: key, DocCount: docCount, Sub: sub}, nil
}

func decodeWrapper(name string, obj *object, path string) (domagg.Result, error) {
	docCount, err := docCountOf(obj, path)
	if err != nil {
		return nil, err
	}
	sub, err := subAggregations(obj, path)
	if err != nil {
		return nil, err
	}
	return domagg.Wrapper{Name: name, DocCount: docCount, Sub: sub}, nil
}

// subAggregations collects the nested results of a bucket or wrapper.
// Typed keys are always results; untyped object fields are results unless reserved.
func subAggregations(obj *object, path string) (*domagg.Set, error) {
	set := domagg.NewSet()
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if _, reserved := objectFields[pair.Key]; reserved {
			continue
		}
		kind, name := splitTypedKey(pair.Key)
		if kind == "" && !isObject(pair.Value) {
			continue
		}
		r, err := decodeResult(kind, name, pair.Value, joinPath(path, name))
		if err != nil {
			return nil, err
		}
		set.Put(name, r)
	}
	return set, nil
}

// bucketKey prefers key_as_string; numbers keep their JSON spelling and
// composite keys render as compact JSON.
func bucketKey(obj *object, path string) (string, error) {
	if s, ok := stringField(obj, "key_as_string"); ok {
		return s, nil
	}
	raw, ok := obj.Get("key")
	if !ok {
		return "", domain.NewMalformedResult(path, "bucket without key")
	}
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return "", domain.NewMalformedResult(path, "bucket without key")
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", domain.NewMalformedResult(path, "invalid bucket key: "+err.Error())
		}
		return s, nil
	case raw[0] == '{' || raw[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", domain.NewMalformedResult(path, "invalid bucket key: "+err.Error())
		}
		return buf.String(), nil
	default:
		return string(raw), nil
	}
}

func docCountOf(obj *object, path string) (int64, error) {
	raw, ok := obj.Get("doc_count")
	if !ok {
		return 0, nil
	}
	n, err := parseCount(raw)
	if err != nil {
		return 0, domain.NewMalformedResult(path, "doc_count: "+err.Error())
	}
	return n, nil
}
