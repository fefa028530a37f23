package types

import "time"

// Metadata keys stamped onto every chunk by the splitter and the index.
const (
	MetaSource     = "source"      // 文档标签（一般为文件名）
	MetaPage       = "page"        // 来源页码（1 起始，十进制字符串）
	MetaDocumentID = "document_id" // 所属文档 ID
	MetaChunkID    = "chunk_id"    // 索引条目 ID：{document_id}_{index}
)

// Page 表示文档中的一页，页码从 1 开始。
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"content"`
}

// Document 是上游解析产出的不可变文档：标识、标签和有序页序列。
type Document struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
}

// Chunk 是存储与检索的最小单元。
// Content 去除首尾空白后非空；CharCount 按 Unicode 码点计数。
type Chunk struct {
	Content   string            `json:"content"`
	Index     int               `json:"chunk_index"`
	CharCount int               `json:"char_count"`
	IsCode    bool              `json:"is_code,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SearchResult 是一次相似度检索命中的条目。
// Relevance 位于 [0,1]，1.0 表示完全匹配。
type SearchResult struct {
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	Relevance float64           `json:"relevance_score"`
}

// SourceRef 是按 (source, page) 去重后的来源引用。
type SourceRef struct {
	Source    string  `json:"source"`
	Preview   string  `json:"content"`
	Relevance float64 `json:"relevance_score"`
}

// QueryResult 是一次 RAG 问答的最终结果。
type QueryResult struct {
	Answer     string      `json:"answer"`
	HasContext bool        `json:"has_context"`
	Sources    []SourceRef `json:"sources,omitempty"`
}

// IndexStats 是向量索引的聚合统计。
type IndexStats struct {
	TotalChunks    int `json:"total_chunks"`
	TotalDocuments int `json:"total_documents"`
}

// DocumentSummary 是按 document_id 聚合的文档摘要行。
// AddedAt 取该文档所有条目中最早的入库时间。
type DocumentSummary struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ChunkCount int       `json:"chunk_count"`
	AddedAt    time.Time `json:"added_at"`
}

// CloneMetadata returns a shallow copy of m; nil stays nil.
func CloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
