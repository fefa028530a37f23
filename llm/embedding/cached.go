package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheConfig 配置 Redis 嵌入缓存.
type CacheConfig struct {
	Addr     string        `json:"addr" yaml:"addr"`
	Password string        `json:"password" yaml:"password"`
	DB       int           `json:"db" yaml:"db"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// CachedProvider 用 Redis 缓存包装嵌入提供者.
// 嵌入对相同输入是确定性的，缓存命中可以完全跳过上游调用.
// 缓存是尽力而为的：Redis 故障只记日志，不影响嵌入结果.
type CachedProvider struct {
	inner  Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider 创建缓存装饰器.
func NewCachedProvider(inner Provider, cfg CacheConfig, logger *zap.Logger) *CachedProvider {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &CachedProvider{
		inner:  inner,
		rdb:    rdb,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "embedding_cache")),
	}
}

func (p *CachedProvider) Name() string      { return p.inner.Name() }
func (p *CachedProvider) Dimensions() int   { return p.inner.Dimensions() }
func (p *CachedProvider) MaxBatchSize() int { return p.inner.MaxBatchSize() }

// Close 释放 Redis 连接.
func (p *CachedProvider) Close() error { return p.rdb.Close() }

// EmbedDocuments 先查缓存，仅为未命中的文本调用上游.
func (p *CachedProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, len(documents))
	var missIdx []int
	var missTexts []string

	for i, text := range documents {
		if vec, ok := p.get(ctx, text); ok {
			vectors[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		fresh, err := p.inner.EmbedDocuments(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range fresh {
			vectors[missIdx[j]] = vec
			p.set(ctx, missTexts[j], vec)
		}
	}

	p.logger.Debug("embedding batch served",
		zap.Int("total", len(documents)),
		zap.Int("misses", len(missTexts)))

	return vectors, nil
}

// EmbedQuery 为单个查询生成嵌入，同样走缓存.
func (p *CachedProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if vec, ok := p.get(ctx, query); ok {
		return vec, nil
	}
	vec, err := p.inner.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	p.set(ctx, query, vec)
	return vec, nil
}

func (p *CachedProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(p.inner.Name() + "\x00" + text))
	return "edurag:emb:" + hex.EncodeToString(sum[:])
}

func (p *CachedProvider) get(ctx context.Context, text string) ([]float64, bool) {
	data, err := p.rdb.Get(ctx, p.cacheKey(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			p.logger.Warn("embedding cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		p.logger.Warn("embedding cache entry corrupted", zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (p *CachedProvider) set(ctx context.Context, text string, vec []float64) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, p.cacheKey(text), data, p.ttl).Err(); err != nil {
		p.logger.Warn("embedding cache set failed", zap.Error(err))
	}
}
