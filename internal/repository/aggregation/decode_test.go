package aggregation

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/aggflat/internal/domain"
	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
)

func TestDecodeResponse_TypedMetrics(t *testing.T) {
	set := mustDecode(t, `{
		"took": 3,
		"aggregations": {
			"avg#avg_age": {"value": 22.5},
			"sum#age_sum": {"value": 45.0, "value_as_string": "45"},
			"cardinality#users": {"value": 7}
		}
	}`)

	if got := set.Keys(); !reflect.DeepEqual(got, []string{"avg_age", "age_sum", "users"}) {
		t.Fatalf("keys = %v", got)
	}
	avg, ok := mustGet(t, set, "avg_age").(domagg.SingleValue)
	if !ok {
		t.Fatalf("avg_age is %T", mustGet(t, set, "avg_age"))
	}
	if avg.Name != "avg_age" || avg.Value != 22.5 || avg.ValueAsString != "22.5" {
		t.Errorf("avg_age = %+v", avg)
	}
	sum := mustGet(t, set, "age_sum").(domagg.SingleValue)
	if sum.ValueAsString != "45" {
		t.Errorf("value_as_string = %q", sum.ValueAsString)
	}
}

func TestDecodeResponse_NullSingleValueIsNaN(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"avg#a":{"value":null}}}`)
	sv := mustGet(t, set, "a").(domagg.SingleValue)
	if !math.IsNaN(sv.Value) {
		t.Errorf("expected NaN, got %v", sv.Value)
	}
}

func TestDecodeResponse_Stats(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"stats#age":{"count":3,"min":10,"max":30,"avg":20,"sum":60}}}`)

	mv, ok := mustGet(t, set, "age").(domagg.MultiValue)
	if !ok || mv.Kind != domagg.Stats {
		t.Fatalf("unexpected result %+v", mustGet(t, set, "age"))
	}
	want := []domagg.MetricEntry{
		{Label: "count", Value: 3, ValueAsString: "3"},
		{Label: "min", Value: 10, ValueAsString: "10.0"},
		{Label: "max", Value: 30, ValueAsString: "30.0"},
		{Label: "avg", Value: 20, ValueAsString: "20.0"},
		{Label: "sum", Value: 60, ValueAsString: "60.0"},
	}
	if !reflect.DeepEqual(mv.Entries, want) {
		t.Errorf("entries = %+v", mv.Entries)
	}
}

func TestDecodeResponse_EmptyStats(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"stats#age":{"count":0,"min":null,"max":null,"avg":null,"sum":0}}}`)
	mv := mustGet(t, set, "age").(domagg.MultiValue)

	got := map[string]string{}
	for _, e := range mv.Entries {
		got[e.Label] = e.ValueAsString
	}
	want := map[string]string{"count": "0", "min": "Infinity", "max": "-Infinity", "avg": "NaN", "sum": "0.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("strings = %v", got)
	}
}

func TestDecodeResponse_ExtendedStatsIsStats(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"extended_stats#x":{
		"count":2,"min":1,"max":3,"avg":2,"sum":4,
		"sum_of_squares":10,"variance":1,"std_deviation":1,
		"std_deviation_bounds":{"upper":4,"lower":0}
	}}}`)
	mv := mustGet(t, set, "x").(domagg.MultiValue)
	if mv.Kind != domagg.Stats || len(mv.Entries) != 5 {
		t.Errorf("unexpected %+v", mv)
	}
}

func TestDecodeResponse_StatsAsString(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"stats#d":{
		"count":1,"min":1.0,"max":1.0,"avg":1.0,"sum":1.0,
		"min_as_string":"1970-01-01"
	}}}`)
	mv := mustGet(t, set, "d").(domagg.MultiValue)
	if e, _ := mv.Entry("min"); e.ValueAsString != "1970-01-01" {
		t.Errorf("min = %q", e.ValueAsString)
	}
	if e, _ := mv.Entry("max"); e.ValueAsString != "1.0" {
		t.Errorf("max = %q", e.ValueAsString)
	}
}

func TestDecodeResponse_StatsMissingField(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"aggregations":{"stats#age":{"count":1,"min":1,"max":1,"avg":1}}}`))
	var me *domain.MalformedResultError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResultError, got %v", err)
	}
	if me.Path != "age" {
		t.Errorf("path = %q", me.Path)
	}
	if !errors.Is(err, domain.ErrMalformedResult) {
		t.Error("expected ErrMalformedResult")
	}
}

func TestDecodeResponse_KeyedPercentiles(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"tdigest_percentiles#load":{
		"values":{"1.0":5.0,"1.0_as_string":"5","50.0":25.0,"99.0":null}
	}}}`)
	mv := mustGet(t, set, "load").(domagg.MultiValue)
	if mv.Kind != domagg.Percentiles {
		t.Fatalf("kind = %s", mv.Kind)
	}
	if len(mv.Entries) != 3 {
		t.Fatalf("entries = %+v", mv.Entries)
	}
	labels := []string{mv.Entries[0].Label, mv.Entries[1].Label, mv.Entries[2].Label}
	if !reflect.DeepEqual(labels, []string{"1.0", "50.0", "99.0"}) {
		t.Errorf("labels = %v", labels)
	}
	if mv.Entries[0].ValueAsString != "5" {
		t.Errorf("as_string = %q", mv.Entries[0].ValueAsString)
	}
	if !math.IsNaN(mv.Entries[2].Value) {
		t.Errorf("null percentile should be NaN, got %v", mv.Entries[2].Value)
	}
}

func TestDecodeResponse_ArrayPercentileRanks(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"hdr_percentile_ranks#r":{
		"values":[{"key":500,"value":55.0},{"key":600.5,"value":64.0}]
	}}}`)
	mv := mustGet(t, set, "r").(domagg.MultiValue)
	if mv.Kind != domagg.PercentileRanks {
		t.Fatalf("kind = %s", mv.Kind)
	}
	if mv.Entries[0].Label != "500.0" || mv.Entries[1].Label != "600.5" {
		t.Errorf("labels = %q, %q", mv.Entries[0].Label, mv.Entries[1].Label)
	}
	if mv.Entries[1].Value != 64 {
		t.Errorf("value = %v", mv.Entries[1].Value)
	}
}

func TestDecodeResponse_NestedBuckets(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"sterms#sex":{
		"doc_count_error_upper_bound":0,
		"sum_other_doc_count":0,
		"buckets":[
			{"key":"M","doc_count":2,"lterms#age":{"buckets":[{"key":20,"doc_count":2,"sum#age_sum":{"value":40}}]}},
			{"key":"F","doc_count":1,"lterms#age":{"buckets":[{"key":30,"doc_count":1,"sum#age_sum":{"value":30}}]}}
		]
	}}}`)

	sex, ok := mustGet(t, set, "sex").(domagg.Bucketed)
	if !ok {
		t.Fatalf("sex is %T", mustGet(t, set, "sex"))
	}
	if len(sex.Buckets) != 2 || sex.Buckets[0].Key != "M" || sex.Buckets[1].Key != "F" {
		t.Fatalf("buckets = %+v", sex.Buckets)
	}
	if sex.Buckets[0].DocCount != 2 {
		t.Errorf("doc_count = %d", sex.Buckets[0].DocCount)
	}
	age := mustGet(t, sex.Buckets[0].Sub, "age").(domagg.Bucketed)
	if age.Buckets[0].Key != "20" {
		t.Errorf("numeric key = %q", age.Buckets[0].Key)
	}
	sum := mustGet(t, age.Buckets[0].Sub, "age_sum").(domagg.SingleValue)
	if sum.Value != 40 {
		t.Errorf("age_sum = %v", sum.Value)
	}
}

func TestDecodeResponse_BucketKeys(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{
		"date_histogram#d":{"buckets":[{"key_as_string":"2024-01-01","key":1704067200000,"doc_count":4}]},
		"composite#c":{"after_key":{"a":"x"},"buckets":[{"key":{"a":"x","b":1},"doc_count":1}]},
		"range#r":{"buckets":{"cheap":{"to":10,"doc_count":3},"dear":{"from":10,"doc_count":5}}}
	}}`)

	d := mustGet(t, set, "d").(domagg.Bucketed)
	if d.Buckets[0].Key != "2024-01-01" {
		t.Errorf("date key = %q", d.Buckets[0].Key)
	}
	if d.Buckets[0].HasSub() {
		t.Error("date bucket should have no sub-aggregations")
	}
	c := mustGet(t, set, "c").(domagg.Bucketed)
	if c.Buckets[0].Key != `{"a":"x","b":1}` {
		t.Errorf("composite key = %q", c.Buckets[0].Key)
	}
	r := mustGet(t, set, "r").(domagg.Bucketed)
	if r.Buckets[0].Key != "cheap" || r.Buckets[1].Key != "dear" || r.Buckets[1].DocCount != 5 {
		t.Errorf("keyed buckets = %+v", r.Buckets)
	}
}

func TestDecodeResponse_Wrapper(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"filter#adults":{"doc_count":9,"meta":{"x":1},"avg#avgAge":{"value":22}}}}`)

	w, ok := mustGet(t, set, "adults").(domagg.Wrapper)
	if !ok {
		t.Fatalf("adults is %T", mustGet(t, set, "adults"))
	}
	if w.DocCount != 9 {
		t.Errorf("doc_count = %d", w.DocCount)
	}
	if got := w.Sub.Keys(); !reflect.DeepEqual(got, []string{"avgAge"}) {
		t.Errorf("sub keys = %v", got)
	}
}

func TestDecodeResponse_UnknownKind(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"geo_bounds#area":{"bounds":{"top_left":{"lat":1,"lon":2}}}}}`)
	u, ok := mustGet(t, set, "area").(domagg.Unknown)
	if !ok {
		t.Fatalf("area is %T", mustGet(t, set, "area"))
	}
	if u.KindLabel != "geo_bounds" {
		t.Errorf("kind = %q", u.KindLabel)
	}
}

func TestDecodeResponse_UntypedInference(t *testing.T) {
	set := mustDecode(t, `{
		"terms": {"buckets":[{"key":"a","doc_count":1,"inner":{"value":3}}]},
		"stats": {"count":1,"min":1,"max":1,"avg":1,"sum":1},
		"pct": {"values":{"50.0":2}},
		"metric": {"value":1.5},
		"only": {"doc_count":4},
		"odd": {"hits":{"total":1}}
	}`)

	cases := map[string]string{
		"terms":  "aggregation.Bucketed",
		"stats":  "aggregation.MultiValue",
		"pct":    "aggregation.MultiValue",
		"metric": "aggregation.SingleValue",
		"only":   "aggregation.Wrapper",
		"odd":    "aggregation.Unknown",
	}
	for name, want := range cases {
		if got := reflect.TypeOf(mustGet(t, set, name)).String(); got != want {
			t.Errorf("%s: got %s, want %s", name, got, want)
		}
	}
	terms := mustGet(t, set, "terms").(domagg.Bucketed)
	if _, ok := terms.Buckets[0].Sub.Get("inner"); !ok {
		t.Error("expected untyped sub-aggregation in bucket")
	}
	if u := mustGet(t, set, "odd").(domagg.Unknown); u.KindLabel != "untyped" {
		t.Errorf("kind label = %q", u.KindLabel)
	}
}

func TestDecodeResponse_UntypedSubAggregationsNamedLikeBucketFields(t *testing.T) {
	set := mustDecode(t, `{
		"prices": {"buckets":[{"key":"a","doc_count":2,"from":{"value":3},"score":{"value":0.5},"meta":{"x":1}}]},
		"scoped": {"doc_count":4,"interval":{"value":7},"meta":{"y":2}}
	}`)

	prices := mustGet(t, set, "prices").(domagg.Bucketed)
	if got := prices.Buckets[0].Sub.Keys(); !reflect.DeepEqual(got, []string{"from", "score"}) {
		t.Errorf("bucket sub keys = %v", got)
	}
	if from := mustGet(t, prices.Buckets[0].Sub, "from").(domagg.SingleValue); from.Value != 3 {
		t.Errorf("from = %v", from.Value)
	}
	scoped := mustGet(t, set, "scoped").(domagg.Wrapper)
	if got := scoped.Sub.Keys(); !reflect.DeepEqual(got, []string{"interval"}) {
		t.Errorf("wrapper sub keys = %v", got)
	}
}

func TestDecodeResponse_ScalarBucketFieldsAreNotAggregations(t *testing.T) {
	set := mustDecode(t, `{"aggregations":{"range#r":{"buckets":[
		{"key":"*-10.0","to":10,"to_as_string":"10.0","doc_count":3,"score":1.5}
	]}}}`)

	r := mustGet(t, set, "r").(domagg.Bucketed)
	if r.Buckets[0].HasSub() {
		t.Errorf("unexpected sub-aggregations %v", r.Buckets[0].Sub.Keys())
	}
}

func TestDecodeResponse_NoAggregations(t *testing.T) {
	set := mustDecode(t, `{"took":1,"timed_out":false,"hits":{"total":{"value":0},"hits":[]}}`)
	if set.Len() != 0 {
		t.Errorf("expected empty set, got %v", set.Keys())
	}
}

func TestDecodeResponse_Malformed(t *testing.T) {
	cases := map[string]struct {
		data string
		path string
	}{
		"not an object":   {`[1,2]`, ""},
		"invalid json":    {`{"aggregations":`, ""},
		"result not obj":  {`{"aggregations":{"avg#a":5}}`, "a"},
		"missing value":   {`{"aggregations":{"avg#a":{}}}`, "a"},
		"bad value":       {`{"aggregations":{"avg#a":{"value":"many"}}}`, "a"},
		"missing buckets": {`{"aggregations":{"sterms#t":{}}}`, "t"},
		"bucket no key":   {`{"aggregations":{"sterms#t":{"buckets":[{"doc_count":1}]}}}`, "t"},
		"deep": {
			`{"aggregations":{"sterms#t":{"buckets":[{"key":"k","doc_count":1,"stats#s":{"count":1}}]}}}`,
			"t.k.s",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(tc.data))
			var me *domain.MalformedResultError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedResultError, got %v", err)
			}
			if me.Path != tc.path {
				t.Errorf("path = %q, want %q", me.Path, tc.path)
			}
		})
	}
}

func TestFormatDouble(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{-2.5, "-2.5"},
		{0.001, "0.001"},
		{0.0001, "1.0E-4"},
		{1e7, "1.0E7"},
		{12345678.9, "1.23456789E7"},
		{9999999, "9999999.0"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
	}
	for _, tc := range cases {
		if got := formatDouble(tc.in); got != tc.want {
			t.Errorf("formatDouble(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
