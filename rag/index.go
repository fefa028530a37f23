package rag

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/edurag/llm/embedding"
	"github.com/BaSui01/edurag/types"
)

const tracerName = "github.com/BaSui01/edurag/rag"

// KnowledgeIndex 组合嵌入提供者和向量存储，提供文档级的增删查.
type KnowledgeIndex struct {
	embedder embedding.Provider
	store    VectorStore
	logger   *zap.Logger
	tracer   trace.Tracer

	// 并发嵌入的批次上限.
	maxParallel int
}

// IndexOption 配置 KnowledgeIndex.
type IndexOption func(*KnowledgeIndex)

// WithMaxParallel 设置并发嵌入的批次数上限.
func WithMaxParallel(n int) IndexOption {
	return func(idx *KnowledgeIndex) {
		if n > 0 {
			idx.maxParallel = n
		}
	}
}

// NewKnowledgeIndex 创建索引.
func NewKnowledgeIndex(embedder embedding.Provider, store VectorStore, logger *zap.Logger, opts ...IndexOption) *KnowledgeIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &KnowledgeIndex{
		embedder:    embedder,
		store:       store,
		logger:      logger.With(zap.String("component", "knowledge_index")),
		tracer:      otel.Tracer(tracerName),
		maxParallel: 4,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// AddChunks 将一个文档的全部块写入索引.
//
// 写入是原子的：先完成所有块的嵌入，全部成功后才一次性落库；
// 任何一批嵌入失败都不会留下半个文档。条目 ID 为 {documentID}_{块序号}.
func (idx *KnowledgeIndex) AddChunks(ctx context.Context, chunks []types.Chunk, documentID string) (int, error) {
	ctx, span := idx.tracer.Start(ctx, "index.add_chunks",
		trace.WithAttributes(
			attribute.String("document_id", documentID),
			attribute.Int("chunks", len(chunks)),
		))
	defer span.End()

	if len(chunks) == 0 {
		return 0, nil
	}

	start := time.Now()
	vectors, err := idx.embedAll(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	embeddingDuration.Observe(time.Since(start).Seconds())

	now := time.Now()
	entries := make([]Entry, len(chunks))
	for i, chunk := range chunks {
		meta := types.CloneMetadata(chunk.Metadata)
		if meta == nil {
			meta = make(map[string]string)
		}
		id := fmt.Sprintf("%s_%d", documentID, i)
		meta[types.MetaDocumentID] = documentID
		meta[types.MetaChunkID] = id

		entries[i] = Entry{
			ID:         id,
			DocumentID: documentID,
			Content:    chunk.Content,
			Vector:     vectors[i],
			Metadata:   meta,
			AddedAt:    now,
		}
	}

	if err := idx.store.Upsert(ctx, entries); err != nil {
		span.RecordError(err)
		return 0, err
	}

	documentsIndexed.Inc()
	chunksIndexed.Add(float64(len(entries)))
	idx.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(entries)),
		zap.Duration("elapsed", time.Since(start)))

	return len(entries), nil
}

// embedAll 将块按提供者的批量上限分批并发嵌入，结果顺序与输入一致.
func (idx *KnowledgeIndex) embedAll(ctx context.Context, chunks []types.Chunk) ([][]float64, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	batch := idx.embedder.MaxBatchSize()
	if batch <= 0 {
		batch = len(texts)
	}

	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.maxParallel)

	for lo := 0; lo < len(texts); lo += batch {
		lo := lo
		hi := lo + batch
		if hi > len(texts) {
			hi = len(texts)
		}
		g.Go(func() error {
			out, err := idx.embedder.EmbedDocuments(gctx, texts[lo:hi])
			if err != nil {
				return types.NewError(types.ErrEmbedding,
					fmt.Sprintf("embed chunks %d-%d", lo, hi-1)).WithCause(err)
			}
			if len(out) != hi-lo {
				return types.NewError(types.ErrEmbedding,
					fmt.Sprintf("provider returned %d vectors for %d chunks", len(out), hi-lo))
			}
			copy(vectors[lo:hi], out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Search 检索与查询最相关的 topK 个块.
// 相关度为 clamp01(1 - 余弦距离)，降序排列.
// filter 非空时只在元数据等值匹配的条目中检索（如限定某个 source 或 page）.
func (idx *KnowledgeIndex) Search(ctx context.Context, query string, topK int, filter map[string]string) ([]types.SearchResult, error) {
	ctx, span := idx.tracer.Start(ctx, "index.search",
		trace.WithAttributes(
			attribute.Int("top_k", topK),
			attribute.Int("filter_keys", len(filter)),
		))
	defer span.End()

	start := time.Now()
	vector, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		searchesTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, types.NewError(types.ErrEmbedding, "embed query").WithCause(err)
	}

	matches, err := idx.store.Query(ctx, vector, topK, filter)
	if err != nil {
		searchesTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, err
	}
	searchDuration.Observe(time.Since(start).Seconds())

	results := make([]types.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, types.SearchResult{
			Content:   m.Entry.Content,
			Metadata:  types.CloneMetadata(m.Entry.Metadata),
			Relevance: clamp01(1 - m.Distance),
		})
	}

	if len(results) == 0 {
		searchesTotal.WithLabelValues("empty").Inc()
	} else {
		searchesTotal.WithLabelValues("hit").Inc()
	}

	idx.logger.Debug("search completed",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)))

	return results, nil
}

// DeleteDocument 删除文档的全部条目，返回删除数量.
// 文档不存在不是错误，返回 0.
func (idx *KnowledgeIndex) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	ctx, span := idx.tracer.Start(ctx, "index.delete_document",
		trace.WithAttributes(attribute.String("document_id", documentID)))
	defer span.End()

	return idx.store.DeleteByDocument(ctx, documentID)
}

// Stats 返回索引的块与文档总数.
func (idx *KnowledgeIndex) Stats(ctx context.Context) (types.IndexStats, error) {
	st, err := idx.store.Stats(ctx)
	if err != nil {
		return types.IndexStats{}, err
	}
	return types.IndexStats{TotalChunks: st.TotalEntries, TotalDocuments: st.TotalDocuments}, nil
}

// ListDocuments 列出索引中的全部文档.
func (idx *KnowledgeIndex) ListDocuments(ctx context.Context) ([]types.DocumentSummary, error) {
	groups, err := idx.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.DocumentSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, types.DocumentSummary{
			ID:         g.DocumentID,
			Source:     g.Source,
			ChunkCount: g.ChunkCount,
			AddedAt:    g.FirstAdded,
		})
	}
	return out, nil
}
