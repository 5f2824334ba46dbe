package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/aggflat/internal/domain"
	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/output"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
	"github.com/kailas-cloud/aggflat/internal/usecase/flatten"
)

// --- Mocks ---

type mockRepo struct {
	runSet    *domagg.Set
	runErr    error
	decodeSet *domagg.Set
	decodeErr error
	lastReq   *request.Request
	lastRaw   []byte
}

func (m *mockRepo) Run(_ context.Context, req *request.Request) (*domagg.Set, error) {
	m.lastReq = req
	return m.runSet, m.runErr
}

func (m *mockRepo) Decode(data []byte) (*domagg.Set, error) {
	m.lastRaw = data
	return m.decodeSet, m.decodeErr
}

type failingFlattener struct{ err error }

func (f failingFlattener) Flatten(*domagg.Set) (output.Value, error) { return nil, f.err }

func newOutcomes() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_flatten_total"}, []string{"outcome"})
}

func testRequest(t *testing.T) *request.Request {
	t.Helper()
	req, err := request.New([]string{"people"}, json.RawMessage(`{"avgAge":{"avg":{"field":"age"}}}`), nil)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func toJSON(t *testing.T, v output.Value) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// --- Aggregate ---

func TestAggregate_FlattensResults(t *testing.T) {
	repo := &mockRepo{runSet: domagg.NewSet(
		domagg.Named("avgAge", domagg.SingleValue{Name: "avgAge", Value: 22}),
		domagg.Named("maxAge", domagg.SingleValue{Name: "maxAge", Value: 30}),
	)}
	outcomes := newOutcomes()
	svc := New(repo, flatten.New(nil), outcomes)

	req := testRequest(t)
	out, err := svc.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toJSON(t, out); got != `{"avgAge":{"avgAge":22},"maxAge":{"maxAge":30}}` {
		t.Errorf("output = %s", got)
	}
	if repo.lastReq != req {
		t.Error("request was not passed to the repository")
	}
	if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeOK)); got != 1 {
		t.Errorf("ok outcomes = %v", got)
	}
}

func TestAggregate_SingleMetricIsScalar(t *testing.T) {
	repo := &mockRepo{runSet: domagg.NewSet(
		domagg.Named("avgAge", domagg.SingleValue{Name: "avgAge", Value: 22}),
	)}
	svc := New(repo, flatten.New(nil), nil)

	out, err := svc.Aggregate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := out.(output.Scalar); !ok || s != 22 {
		t.Errorf("expected Scalar 22, got %#v", out)
	}
}

func TestAggregate_RepoError(t *testing.T) {
	repo := &mockRepo{runErr: domain.ErrIndexNotFound}
	outcomes := newOutcomes()
	svc := New(repo, flatten.New(nil), outcomes)

	_, err := svc.Aggregate(context.Background(), testRequest(t))
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeOK)); got != 0 {
		t.Errorf("ok outcomes = %v", got)
	}
}

func TestAggregate_MalformedBackendResponse(t *testing.T) {
	repo := &mockRepo{runErr: domain.NewMalformedResult("s", "stats result missing min")}
	outcomes := newOutcomes()
	svc := New(repo, flatten.New(nil), outcomes)

	_, err := svc.Aggregate(context.Background(), testRequest(t))
	if !errors.Is(err, domain.ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
	if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeMalformed)); got != 1 {
		t.Errorf("malformed outcomes = %v", got)
	}
}

func TestAggregate_FlattenError(t *testing.T) {
	repo := &mockRepo{runSet: domagg.NewSet()}
	outcomes := newOutcomes()
	svc := New(repo, failingFlattener{err: errors.New("boom")}, outcomes)

	if _, err := svc.Aggregate(context.Background(), testRequest(t)); err == nil {
		t.Fatal("expected error")
	}
	if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeError)); got != 1 {
		t.Errorf("error outcomes = %v", got)
	}
}

// --- FlattenResponse ---

func TestFlattenResponse_HappyPath(t *testing.T) {
	repo := &mockRepo{decodeSet: domagg.NewSet(
		domagg.Named("sex", domagg.Bucketed{Name: "sex", Buckets: []domagg.Bucket{
			{Key: "M", DocCount: 2},
			{Key: "F", DocCount: 1},
		}}),
	)}
	svc := New(repo, flatten.New(nil), nil)

	out, err := svc.FlattenResponse(context.Background(), []byte(`{"aggregations":{}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toJSON(t, out); got != `{"sex":{"M":2,"F":1}}` {
		t.Errorf("output = %s", got)
	}
	if string(repo.lastRaw) != `{"aggregations":{}}` {
		t.Errorf("raw = %s", repo.lastRaw)
	}
}

func TestFlattenResponse_EmptyBody(t *testing.T) {
	svc := New(&mockRepo{}, flatten.New(nil), nil)

	_, err := svc.FlattenResponse(context.Background(), []byte("  \n"))
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestFlattenResponse_DecodeError(t *testing.T) {
	repo := &mockRepo{decodeErr: domain.NewMalformedResult("", "expected a JSON object")}
	outcomes := newOutcomes()
	svc := New(repo, flatten.New(nil), outcomes)

	_, err := svc.FlattenResponse(context.Background(), []byte(`[]`))
	if !errors.Is(err, domain.ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
	if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeMalformed)); got != 1 {
		t.Errorf("malformed outcomes = %v", got)
	}
}
