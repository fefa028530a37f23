package embedding

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/BaSui01/edurag/types"
)

// RateLimitedProvider 对上游嵌入服务施加客户端限流.
// 上游按请求计费并有 RPM 配额，批量索引时需要平滑请求速率.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider 创建限流装饰器.
// rps 为每秒允许的请求数，burst 为突发容量.
func NewRateLimitedProvider(inner Provider, rps float64, burst int) *RateLimitedProvider {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (p *RateLimitedProvider) Name() string      { return p.inner.Name() }
func (p *RateLimitedProvider) Dimensions() int   { return p.inner.Dimensions() }
func (p *RateLimitedProvider) MaxBatchSize() int { return p.inner.MaxBatchSize() }

// EmbedDocuments 等待限流令牌后转发给内层提供者.
func (p *RateLimitedProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, types.NewError(types.ErrCancelled, "rate limit wait interrupted").WithCause(err)
	}
	return p.inner.EmbedDocuments(ctx, documents)
}

// EmbedQuery 等待限流令牌后转发给内层提供者.
func (p *RateLimitedProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, types.NewError(types.ErrCancelled, "rate limit wait interrupted").WithCause(err)
	}
	return p.inner.EmbedQuery(ctx, query)
}
