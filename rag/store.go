package rag

import (
	"context"
	"math"
	"time"
)

// Entry 是向量索引中的一个条目，对应一个文档块.
type Entry struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Vector     []float64         `json:"vector"`
	Metadata   map[string]string `json:"metadata"`
	AddedAt    time.Time         `json:"added_at"`
}

// Match 是一次最近邻查询的命中结果.
// Distance 为余弦距离（1 - 余弦相似度），越小越相关.
type Match struct {
	Entry    Entry   `json:"entry"`
	Distance float64 `json:"distance"`
}

// DocumentGroup 是按文档聚合的条目统计.
type DocumentGroup struct {
	DocumentID string
	Source     string
	ChunkCount int
	FirstAdded time.Time
}

// StoreStats 汇总存储中的条目与文档数量.
type StoreStats struct {
	TotalEntries   int `json:"total_entries"`
	TotalDocuments int `json:"total_documents"`
}

// VectorStore 抽象向量条目的存储与查询.
// 实现必须保证并发安全；Query 的结果按距离升序，
// 距离相同时按插入顺序稳定排列.
type VectorStore interface {
	// Upsert 原子地写入一批条目，同 ID 覆盖.
	Upsert(ctx context.Context, entries []Entry) error

	// Query 返回与 vector 最接近的 k 个条目.
	// filter 非空时只返回元数据逐键相等匹配的条目；nil 不过滤.
	Query(ctx context.Context, vector []float64, k int, filter map[string]string) ([]Match, error)

	// DeleteByDocument 删除指定文档的全部条目，返回删除数量.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Stats 返回条目和文档总数.
	Stats(ctx context.Context) (StoreStats, error)

	// ListDocuments 按首次入库时间列出全部文档.
	ListDocuments(ctx context.Context) ([]DocumentGroup, error)

	// Close 释放底层资源.
	Close() error
}

// matchesFilter 报告条目元数据是否逐键等于 filter 的全部键值.
// 空 filter 匹配一切.
func matchesFilter(meta, filter map[string]string) bool {
	for k, want := range filter {
		if meta[k] != want {
			return false
		}
	}
	return true
}

// cosineDistance 计算两个向量的余弦距离.
// 维度不一致或零向量时返回最大距离 1.
func cosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// clamp01 将数值收敛到 [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
