package aggregate

import (
	"context"

	domagg "github.com/kailas-cloud/aggflat/internal/domain/aggregation"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/output"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
)

// Repository runs aggregation requests and decodes search responses.
type Repository interface {
	Run(ctx context.Context, req *request.Request) (*domagg.Set, error)
	Decode(data []byte) (*domagg.Set, error)
}

// Flattener converts a result set into its client-facing form.
type Flattener interface {
	Flatten(results *domagg.Set) (output.Value, error)
}
