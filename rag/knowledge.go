package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/edurag/types"
)

// 文档操作的状态值.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
)

// AddResult 是文档入库操作的摘要.
type AddResult struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	ChunksAdded int    `json:"chunks_added"`
	Status      string `json:"status"`
}

// DeleteResult 是文档删除操作的摘要.
type DeleteResult struct {
	DocumentID    string `json:"document_id"`
	ChunksDeleted int    `json:"chunks_deleted"`
	Status        string `json:"status"`
}

// KnowledgeService 管理知识库中的文档.
type KnowledgeService struct {
	index  *KnowledgeIndex
	logger *zap.Logger
}

// NewKnowledgeService 创建知识库管理服务.
func NewKnowledgeService(index *KnowledgeIndex, logger *zap.Logger) *KnowledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeService{
		index:  index,
		logger: logger.With(zap.String("component", "knowledge_service")),
	}
}

// AddDocument 将切分好的文档块写入知识库.
// 每个块的 source 元数据会被覆盖为上传文件名.
func (s *KnowledgeService) AddDocument(ctx context.Context, chunks []types.Chunk, documentID, filename string) (*AddResult, error) {
	stamped := make([]types.Chunk, len(chunks))
	for i, chunk := range chunks {
		meta := types.CloneMetadata(chunk.Metadata)
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[types.MetaSource] = filename
		chunk.Metadata = meta
		stamped[i] = chunk
	}

	count, err := s.index.AddChunks(ctx, stamped, documentID)
	if err != nil {
		return nil, err
	}

	return &AddResult{
		DocumentID:  documentID,
		Filename:    filename,
		ChunksAdded: count,
		Status:      StatusSuccess,
	}, nil
}

// DeleteDocument 从知识库删除文档.
// 文档不存在时 Status 为 not_found，不返回错误.
func (s *KnowledgeService) DeleteDocument(ctx context.Context, documentID string) (*DeleteResult, error) {
	count, err := s.index.DeleteDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	status := StatusSuccess
	if count == 0 {
		status = StatusNotFound
	}
	return &DeleteResult{
		DocumentID:    documentID,
		ChunksDeleted: count,
		Status:        status,
	}, nil
}

// Stats 返回知识库统计.
func (s *KnowledgeService) Stats(ctx context.Context) (types.IndexStats, error) {
	return s.index.Stats(ctx)
}

// ListDocuments 列出知识库中的全部文档.
func (s *KnowledgeService) ListDocuments(ctx context.Context) ([]types.DocumentSummary, error) {
	return s.index.ListDocuments(ctx)
}

// GetDocument 查找单个文档的摘要.
// 未知 ID 返回 DOCUMENT_NOT_FOUND 错误.
func (s *KnowledgeService) GetDocument(ctx context.Context, documentID string) (*types.DocumentSummary, error) {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == documentID {
			return &d, nil
		}
	}
	return nil, types.NewError(types.ErrDocumentNotFound, "document "+documentID+" not found")
}
