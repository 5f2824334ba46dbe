package request

import "context"

type noCacheKey struct{}

// WithoutCache marks ctx so cached search responses are neither read nor written.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey{}, true)
}

// CacheDisabled reports whether ctx was marked by WithoutCache.
func CacheDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey{}).(bool)
	return v
}
