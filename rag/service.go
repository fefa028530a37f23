package rag

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/edurag/llm"
	"github.com/BaSui01/edurag/llm/tokenizer"
	"github.com/BaSui01/edurag/types"
)

// NoContextAnswer 是知识库中没有命中任何内容时的固定回复.
const NoContextAnswer = "抱歉，我在知识库中没有找到与您问题相关的内容。请确保已上传相关的课程资料，或尝试换一种方式提问。"

// DefaultTopK 是单次问答检索的默认块数.
const DefaultTopK = 5

// 来源和页码缺失时的占位值，与前端展示约定一致.
const (
	unknownSource = "Unknown"
	unknownPage   = "N/A"
)

// RAGService 编排检索增强问答：检索 → 拼装上下文 → 生成 → 整理来源.
type RAGService struct {
	index    *KnowledgeIndex
	provider llm.Provider
	counter  tokenizer.Counter
	logger   *zap.Logger
	tracer   trace.Tracer

	// 上下文 token 预算，0 表示不限制.
	contextBudget int
}

// ServiceOption 配置 RAGService.
type ServiceOption func(*RAGService)

// WithTokenCounter 启用上下文 token 预算：超出预算时
// 从相关度最低的块开始丢弃，至少保留一个块.
func WithTokenCounter(c tokenizer.Counter, budget int) ServiceOption {
	return func(s *RAGService) {
		s.counter = c
		s.contextBudget = budget
	}
}

// NewRAGService 创建问答服务.
func NewRAGService(index *KnowledgeIndex, provider llm.Provider, logger *zap.Logger, opts ...ServiceOption) *RAGService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RAGService{
		index:    index,
		provider: provider,
		logger:   logger.With(zap.String("component", "rag_service")),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryOptions 控制单次问答.
type QueryOptions struct {
	TopK           int
	IncludeSources bool
	Filter         map[string]string
}

// QueryOption 调整单次问答参数.
type QueryOption func(*QueryOptions)

// WithTopK 设置检索块数.
func WithTopK(k int) QueryOption {
	return func(o *QueryOptions) {
		if k > 0 {
			o.TopK = k
		}
	}
}

// WithoutSources 关闭来源整理.
func WithoutSources() QueryOption {
	return func(o *QueryOptions) { o.IncludeSources = false }
}

// WithFilter 将检索限定在元数据等值匹配的条目内，
// 例如 WithFilter(map[string]string{types.MetaSource: "ds.pdf"}).
func WithFilter(filter map[string]string) QueryOption {
	return func(o *QueryOptions) { o.Filter = filter }
}

// Answer 回答一个问题.
//
// 检索不到任何内容时返回固定的兜底回复，HasContext 为 false，
// 不调用生成模型。生成失败返回 GENERATION_ERROR（取消除外）.
func (s *RAGService) Answer(ctx context.Context, question string, opts ...QueryOption) (*types.QueryResult, error) {
	o := QueryOptions{TopK: DefaultTopK, IncludeSources: true}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := s.tracer.Start(ctx, "rag.answer",
		trace.WithAttributes(attribute.Int("top_k", o.TopK)))
	defer span.End()

	results, err := s.index.Search(ctx, question, o.TopK, o.Filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(results) == 0 {
		answersTotal.WithLabelValues("false").Inc()
		s.logger.Info("no context found for question")
		out := &types.QueryResult{Answer: NoContextAnswer, HasContext: false}
		if o.IncludeSources {
			out.Sources = []types.SourceRef{}
		}
		return out, nil
	}

	results = s.fitBudget(results)
	contextBlock := formatContext(results)

	answer, err := llm.Completion(ctx, s.provider, llm.RenderRAGPrompt(contextBlock), question)
	if err != nil {
		span.RecordError(err)
		if types.GetErrorCode(err) == types.ErrCancelled {
			return nil, err
		}
		return nil, types.NewError(types.ErrGeneration, "generate answer").WithCause(err)
	}

	answersTotal.WithLabelValues("true").Inc()
	out := &types.QueryResult{Answer: answer, HasContext: true}
	if o.IncludeSources {
		out.Sources = formatSources(results)
	}
	return out, nil
}

// RelevantContext 只做检索不生成，用于调试和前端展示命中块.
// filter 语义与 WithFilter 相同，nil 表示全库检索.
func (s *RAGService) RelevantContext(ctx context.Context, question string, topK int, filter map[string]string) ([]types.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return s.index.Search(ctx, question, topK, filter)
}

// fitBudget 在配置了 token 预算时从尾部（相关度最低）丢块.
// 检索结果按相关度降序，至少保留一个块.
func (s *RAGService) fitBudget(results []types.SearchResult) []types.SearchResult {
	if s.counter == nil || s.contextBudget <= 0 {
		return results
	}

	total := 0
	kept := 0
	for _, r := range results {
		n, err := s.counter.CountTokens(r.Content)
		if err != nil {
			s.logger.Warn("token counting failed, keeping all chunks", zap.Error(err))
			return results
		}
		if kept > 0 && total+n > s.contextBudget {
			break
		}
		total += n
		kept++
	}

	if kept < len(results) {
		s.logger.Debug("context trimmed to token budget",
			zap.Int("kept", kept),
			zap.Int("dropped", len(results)-kept),
			zap.Int("tokens", total))
	}
	return results[:kept]
}

// formatContext 将检索结果渲染为带编号的上下文块.
func formatContext(results []types.SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("【参考资料 %d】\n来源：%s，第%s页\n内容：%s\n",
			i+1, metaOr(r.Metadata, types.MetaSource, unknownSource),
			metaOr(r.Metadata, types.MetaPage, unknownPage), r.Content))
	}
	return strings.Join(parts, "\n")
}

// formatSources 按 (source, page) 去重整理来源引用，
// 保留首次出现（相关度最高）的相关度和预览.
func formatSources(results []types.SearchResult) []types.SourceRef {
	sources := make([]types.SourceRef, 0, len(results))
	seen := make(map[string]struct{})

	for _, r := range results {
		source := metaOr(r.Metadata, types.MetaSource, unknownSource)
		page := metaOr(r.Metadata, types.MetaPage, unknownPage)
		key := source + "\x00" + page
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		sources = append(sources, types.SourceRef{
			Source:    fmt.Sprintf("《%s》第%s页", source, page),
			Preview:   preview(r.Content, 150),
			Relevance: r.Relevance,
		})
	}
	return sources
}

// preview 截取前 limit 个字符，超长时追加省略号.
func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func metaOr(meta map[string]string, key, fallback string) string {
	if v, ok := meta[key]; ok && v != "" {
		return v
	}
	return fallback
}
