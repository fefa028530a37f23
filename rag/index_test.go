package rag

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/edurag/types"
)

// stubEmbedder 用预置向量表做确定性嵌入.
type stubEmbedder struct {
	vectors  map[string][]float64
	batch    int
	calls    atomic.Int64
	failWith error
	failText string
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, documents []string) ([][]float64, error) {
	s.calls.Add(1)
	out := make([][]float64, len(documents))
	for i, text := range documents {
		if s.failWith != nil && (s.failText == "" || strings.Contains(text, s.failText)) {
			return nil, s.failWith
		}
		vec, ok := s.vectors[text]
		if !ok {
			vec = []float64{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	vecs, err := s.EmbedDocuments(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) Name() string    { return "stub" }
func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) MaxBatchSize() int {
	if s.batch > 0 {
		return s.batch
	}
	return 32
}

func chunksOf(contents ...string) []types.Chunk {
	chunks := make([]types.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = types.Chunk{
			Content:   c,
			Index:     i,
			CharCount: len([]rune(c)),
			Metadata:  map[string]string{types.MetaSource: "notes.pdf", types.MetaPage: "1"},
		}
	}
	return chunks
}

func newTestIndex(t *testing.T, embedder *stubEmbedder) *KnowledgeIndex {
	t.Helper()
	return NewKnowledgeIndex(embedder, NewMemoryStore(zaptest.NewLogger(t)), zaptest.NewLogger(t))
}

func TestAddChunks_AssignsIDsAndMetadata(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float64{}}
	store := NewMemoryStore(zaptest.NewLogger(t))
	idx := NewKnowledgeIndex(embedder, store, zaptest.NewLogger(t))

	count, err := idx.AddChunks(ctx, chunksOf("栈的定义", "队列的定义"), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matches, err := store.Query(ctx, []float64{0, 0, 1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	for i, m := range matches {
		assert.Equal(t, fmt.Sprintf("doc-1_%d", i), m.Entry.ID)
		assert.Equal(t, "doc-1", m.Entry.DocumentID)
		assert.Equal(t, "doc-1", m.Entry.Metadata[types.MetaDocumentID])
		assert.Equal(t, m.Entry.ID, m.Entry.Metadata[types.MetaChunkID])
		assert.Equal(t, "notes.pdf", m.Entry.Metadata[types.MetaSource])
		assert.WithinDuration(t, time.Now(), m.Entry.AddedAt, time.Minute)
	}
}

func TestAddChunks_EmptyIsNoop(t *testing.T) {
	embedder := &stubEmbedder{}
	idx := newTestIndex(t, embedder)

	count, err := idx.AddChunks(context.Background(), nil, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, embedder.calls.Load())
}

func TestAddChunks_EmbeddingFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{
		batch:    1,
		failWith: types.NewError(types.ErrRateLimited, "quota exceeded"),
		failText: "第三块",
	}
	store := NewMemoryStore(zaptest.NewLogger(t))
	idx := NewKnowledgeIndex(embedder, store, zaptest.NewLogger(t))

	_, err := idx.AddChunks(ctx, chunksOf("第一块", "第二块", "第三块"), "doc-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrEmbedding, types.GetErrorCode(err))

	// 失败后不能留下半个文档
	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalEntries)
}

func TestAddChunks_BatchesByProviderLimit(t *testing.T) {
	embedder := &stubEmbedder{batch: 2}
	idx := newTestIndex(t, embedder)

	count, err := idx.AddChunks(context.Background(), chunksOf("a", "b", "c", "d", "e"), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, int64(3), embedder.calls.Load())
}

func TestSearch_RelevanceClamped(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"正向内容": {1, 0, 0},
		"反向内容": {-1, 0, 0},
		"查询":   {1, 0, 0},
	}}
	idx := newTestIndex(t, embedder)

	_, err := idx.AddChunks(ctx, chunksOf("正向内容", "反向内容"), "doc-1")
	require.NoError(t, err)

	results, err := idx.Search(ctx, "查询", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.InDelta(t, 1, results[0].Relevance, 1e-9)
	// 反向向量的原始相关度为 -1，必须收敛到 0
	assert.Equal(t, 0.0, results[1].Relevance)
	assert.GreaterOrEqual(t, results[0].Relevance, results[1].Relevance)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t, &stubEmbedder{})
	results, err := idx.Search(context.Background(), "任何问题", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_MetadataIsolated(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, &stubEmbedder{})

	_, err := idx.AddChunks(ctx, chunksOf("内容"), "doc-1")
	require.NoError(t, err)

	results, err := idx.Search(ctx, "内容", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results[0].Metadata[types.MetaSource] = "tampered"

	again, err := idx.Search(ctx, "内容", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", again[0].Metadata[types.MetaSource])
}

func TestDeleteDocument_RestoresStats(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, &stubEmbedder{})

	_, err := idx.AddChunks(ctx, chunksOf("a", "b"), "doc-1")
	require.NoError(t, err)
	_, err = idx.AddChunks(ctx, chunksOf("c"), "doc-2")
	require.NoError(t, err)

	deleted, err := idx.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.IndexStats{TotalChunks: 1, TotalDocuments: 1}, stats)

	deleted, err = idx.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestListDocuments(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, &stubEmbedder{})

	_, err := idx.AddChunks(ctx, chunksOf("a", "b", "c"), "doc-1")
	require.NoError(t, err)

	docs, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.Equal(t, "notes.pdf", docs[0].Source)
	assert.Equal(t, 3, docs[0].ChunkCount)
}
