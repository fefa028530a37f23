package rag

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/edurag/config"
	"github.com/BaSui01/edurag/llm"
	"github.com/BaSui01/edurag/llm/embedding"
	"github.com/BaSui01/edurag/llm/tokenizer"
	"github.com/BaSui01/edurag/types"
)

// NewVectorStoreFromConfig 根据配置创建向量存储.
func NewVectorStoreFromConfig(cfg config.StoreConfig, logger *zap.Logger) (VectorStore, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(logger), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "edurag.db"
		}
		return NewSQLiteStore(path, logger)
	default:
		return nil, types.NewError(types.ErrConfig,
			fmt.Sprintf("unknown store driver %q", cfg.Driver))
	}
}

// NewEmbeddingProviderFromConfig 创建嵌入提供者，
// 按配置叠加限流和 Redis 缓存装饰器.
func NewEmbeddingProviderFromConfig(cfg *config.Config, logger *zap.Logger) embedding.Provider {
	var provider embedding.Provider = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxBatch:   cfg.Embedding.MaxBatch,
		Timeout:    cfg.Embedding.Timeout,
	}, logger)

	if cfg.Embedding.RateLimitRPS > 0 {
		provider = embedding.NewRateLimitedProvider(provider,
			cfg.Embedding.RateLimitRPS, cfg.Embedding.RateLimitBurst)
	}

	if cfg.Cache.Enabled {
		provider = embedding.NewCachedProvider(provider, embedding.CacheConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		}, logger)
	}

	return provider
}

// NewServiceFromConfig 按配置组装完整的问答栈：
// 存储 → 嵌入 → 索引 → 生成 → 服务.
func NewServiceFromConfig(cfg *config.Config, logger *zap.Logger) (*RAGService, *KnowledgeIndex, error) {
	store, err := NewVectorStoreFromConfig(cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}

	embedder := NewEmbeddingProviderFromConfig(cfg, logger)
	index := NewKnowledgeIndex(embedder, store, logger)

	provider := llm.NewOpenAICompatProvider(llm.OpenAICompatConfig{
		ProviderName: cfg.LLM.Provider,
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Timeout:      cfg.LLM.Timeout,
	}, logger)

	var opts []ServiceOption
	if cfg.Retrieval.ContextTokenBudget > 0 {
		counter := tokenizer.NewTiktokenCounter(cfg.Retrieval.TokenizerModel)
		opts = append(opts, WithTokenCounter(counter, cfg.Retrieval.ContextTokenBudget))
	}

	service := NewRAGService(index, provider, logger, opts...)
	return service, index, nil
}
