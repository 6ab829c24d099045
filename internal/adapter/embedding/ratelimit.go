package embedding

import (
	"context"

	"golang.org/x/time/rate"

	"roteiro/internal/port"
)

// RateLimited throttles calls to an embedding API with a token bucket. Each
// Embed call consumes one token regardless of batch size.
type RateLimited struct {
	port.Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps inner. A requestsPerSecond <= 0 disables throttling.
func NewRateLimited(inner port.Embedder, requestsPerSecond float64, burst int) *RateLimited {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		Embedder: inner,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Embed waits for a token, honouring ctx cancellation, then delegates.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Embedder.Embed(ctx, texts)
}
