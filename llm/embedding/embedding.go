// Package embedding 提供统一的嵌入提供者接口和实现.
//
// 嵌入是核心消费的外部能力：对相同输入是确定性的，
// 产出固定维度、已归一化的浮点向量。
package embedding

import "context"

// Provider 定义统一的嵌入提供者接口.
type Provider interface {
	// EmbedDocuments 为一批待索引文本生成嵌入.
	EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error)

	// EmbedQuery 为单个查询生成嵌入.
	EmbedQuery(ctx context.Context, query string) ([]float64, error)

	// Name 返回提供者名称.
	Name() string

	// Dimensions 返回嵌入维度.
	Dimensions() int

	// MaxBatchSize 返回单次请求支持的最大批量.
	MaxBatchSize() int
}
