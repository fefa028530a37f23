package splitter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/edurag/types"
)

// SpanFinder 返回文本中受保护区间的字节偏移 [start, end)。
// 受保护区间整体成块、不参与常规切分。检测是启发式而非解析器，
// 可替换为更严格或语言感知的实现。
type SpanFinder func(text string) [][2]int

// codeBlockPattern 匹配围栏代码块（成对三反引号）
// 以及缩进代码段（连续的制表符或四空格开头行）。
var codeBlockPattern = regexp.MustCompile(
	"```[\\s\\S]*?```" + "|" +
		"(?:^|\n)(?:    |\t).*(?:\n(?:    |\t).*)*",
)

// FindCodeSpans 是默认的 SpanFinder：围栏代码块 + 缩进代码段。
func FindCodeSpans(text string) [][2]int {
	idx := codeBlockPattern.FindAllStringIndex(text, -1)
	spans := make([][2]int, len(idx))
	for i, m := range idx {
		spans[i] = [2]int{m[0], m[1]}
	}
	return spans
}

// CodeAwareSplitter 在常规切分前保护代码块：
// 长度不超过 2×chunk_size 的受保护区间整体成为一个 is_code 块，
// 超大区间退回常规切分，保证没有块是无界的。
type CodeAwareSplitter struct {
	*TextSplitter
	find   SpanFinder
	logger *zap.Logger
}

// DefaultCodeAwareConfig 返回代码感知切分的默认配置。
// 代码示例偏长，块大小相应放宽。
func DefaultCodeAwareConfig() Config {
	return Config{
		ChunkSize:    800,
		ChunkOverlap: 100,
	}
}

// NewCodeAwareSplitter 创建代码感知切分器。find 为 nil 时使用 FindCodeSpans。
func NewCodeAwareSplitter(cfg Config, find SpanFinder, logger *zap.Logger) (*CodeAwareSplitter, error) {
	base, err := NewTextSplitter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if find == nil {
		find = FindCodeSpans
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeAwareSplitter{
		TextSplitter: base,
		find:         find,
		logger:       logger.With(zap.String("component", "splitter_code_aware")),
	}, nil
}

// SplitText 切分文本并保护代码块。
// 受保护块的内容逐字节保留，不做修剪；块索引在最终序列上连续分配。
func (s *CodeAwareSplitter) SplitText(text string, metadata map[string]string) []types.Chunk {
	spans := s.find(text)
	if len(spans) == 0 {
		return s.TextSplitter.SplitText(text, metadata)
	}

	var chunks []types.Chunk
	last := 0
	for _, span := range spans {
		if span[0] < last {
			continue
		}

		// 受保护区间之前的文本走常规切分
		before := text[last:span[0]]
		if strings.TrimSpace(before) != "" {
			chunks = append(chunks, s.TextSplitter.SplitText(before, metadata)...)
		}

		block := text[span[0]:span[1]]
		if utf8.RuneCountInString(block) <= s.chunkSize*2 {
			chunks = append(chunks, types.Chunk{
				Content:   block,
				CharCount: utf8.RuneCountInString(block),
				IsCode:    true,
				Metadata:  types.CloneMetadata(metadata),
			})
		} else {
			// 超大代码块退回常规切分
			s.logger.Debug("oversized code block re-split",
				zap.Int("chars", utf8.RuneCountInString(block)),
				zap.Int("limit", s.chunkSize*2))
			chunks = append(chunks, s.TextSplitter.SplitText(block, metadata)...)
		}

		last = span[1]
	}

	// 最后一个受保护区间之后的文本
	rest := text[last:]
	if strings.TrimSpace(rest) != "" {
		chunks = append(chunks, s.TextSplitter.SplitText(rest, metadata)...)
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

// SplitDocument 逐页切分文档，保留页码引用。
func (s *CodeAwareSplitter) SplitDocument(doc types.Document) []types.Chunk {
	return splitDocumentWith(s, doc)
}
