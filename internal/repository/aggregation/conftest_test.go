package aggregation

import (
	"context"
	"testing"

	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
)

// mockSearcher implements the consumer interface for tests.
type mockSearcher struct {
	searchFn func(ctx context.Context, indices []string, body []byte) ([]byte, error)
}

func (m *mockSearcher) Search(ctx context.Context, indices []string, body []byte) ([]byte, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, indices, body)
	}
	return []byte(`{"took":1,"hits":{"total":0,"hits":[]}}`), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockSearcher) {
	t.Helper()
	ms := &mockSearcher{}
	return New(ms), ms
}

func mustDecode(t *testing.T, data string) *domagg.Set {
	t.Helper()
	set, err := DecodeResponse([]byte(data))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	return set
}

func mustGet(t *testing.T, set *domagg.Set, name string) domagg.Result {
	t.Helper()
	r, ok := set.Get(name)
	if !ok {
		t.Fatalf("result %q not found, have %v", name, set.Keys())
	}
	return r
}
