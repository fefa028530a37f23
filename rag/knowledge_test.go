package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/edurag/types"
)

func newKnowledgeService(t *testing.T) (*KnowledgeService, *KnowledgeIndex) {
	t.Helper()
	idx := newTestIndex(t, &stubEmbedder{})
	return NewKnowledgeService(idx, zaptest.NewLogger(t)), idx
}

func TestAddDocument_StampsFilenameAsSource(t *testing.T) {
	ctx := context.Background()
	svc, idx := newKnowledgeService(t)

	chunks := chunksOf("第一块", "第二块")
	// 切分时带上的 source 会被上传文件名覆盖
	chunks[0].Metadata[types.MetaSource] = "parser-internal"

	result, err := svc.AddDocument(ctx, chunks, "doc-42", "数据结构讲义.pdf")
	require.NoError(t, err)

	assert.Equal(t, "doc-42", result.DocumentID)
	assert.Equal(t, "数据结构讲义.pdf", result.Filename)
	assert.Equal(t, 2, result.ChunksAdded)
	assert.Equal(t, StatusSuccess, result.Status)

	docs, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "数据结构讲义.pdf", docs[0].Source)

	// 调用方的块不被修改
	assert.Equal(t, "parser-internal", chunks[0].Metadata[types.MetaSource])
}

func TestDeleteDocument_Statuses(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKnowledgeService(t)

	_, err := svc.AddDocument(ctx, chunksOf("内容"), "doc-1", "a.pdf")
	require.NoError(t, err)

	result, err := svc.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.ChunksDeleted)

	result, err = svc.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, result.Status)
	assert.Zero(t, result.ChunksDeleted)
}

func TestGetDocument(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKnowledgeService(t)

	_, err := svc.AddDocument(ctx, chunksOf("内容"), "doc-1", "a.pdf")
	require.NoError(t, err)

	doc, err := svc.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc.Source)
	assert.Equal(t, 1, doc.ChunkCount)

	_, err = svc.GetDocument(ctx, "ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrDocumentNotFound, types.GetErrorCode(err))
}

func TestKnowledgeService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKnowledgeService(t)

	_, err := svc.AddDocument(ctx, chunksOf("a", "b"), "doc-1", "a.pdf")
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, chunksOf("c"), "doc-2", "b.pdf")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.IndexStats{TotalChunks: 3, TotalDocuments: 2}, stats)
}
