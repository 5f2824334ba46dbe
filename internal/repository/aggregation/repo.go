package aggregation

import (
	"context"
	"fmt"
	"strings"

	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
)

// Searcher is the consumer interface for the search backend (ISP).
type Searcher interface {
	Search(ctx context.Context, indices []string, body []byte) ([]byte, error)
}

// Repo implements usecase/aggregate.Repository.
type Repo struct {
	searcher Searcher
}

// New creates an aggregation repository.
func New(s Searcher) *Repo {
	return &Repo{searcher: s}
}

// Run executes req against the backend and decodes the aggregation results.
func (r *Repo) Run(ctx context.Context, req *request.Request) (*domagg.Set, error) {
	raw, err := r.searcher.Search(ctx, req.Indices(), req.Body())
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", strings.Join(req.Indices(), ","), err)
	}
	set, err := DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode aggregations: %w", err)
	}
	return set, nil
}

// Decode decodes a raw search response supplied by the caller.
func (r *Repo) Decode(data []byte) (*domagg.Set, error) {
	return DecodeResponse(data)
}
