package splitter

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/edurag/types"
)

// DefaultSeparators 返回默认分隔符层级，从粗到细：
// 段落 > 行 > 句末标点（中英文）> 子句标点（中英文）> 空格 > 字符级兜底。
// 空字符串是最后一级，表示按固定大小滑动窗口切分。
func DefaultSeparators() []string {
	return []string{
		"\n\n", // 段落边界
		"\n",   // 行边界
		"。",    // 中文句号
		".",    // 英文句号
		"；",    // 中文分号
		";",    // 英文分号
		"，",    // 中文逗号
		",",    // 英文逗号
		" ",    // 空格
		"",     // 字符级（最后手段）
	}
}

// Config 分块配置。ChunkSize 与 ChunkOverlap 按 Unicode 码点计数。
type Config struct {
	ChunkSize    int      `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap" yaml:"chunk_overlap"`
	Separators   []string `json:"separators,omitempty" yaml:"separators,omitempty"`
}

// DefaultConfig 返回面向课程资料的默认配置。
func DefaultConfig() Config {
	return Config{
		ChunkSize:    500,
		ChunkOverlap: 50,
	}
}

// Splitter 将文本或文档切分为有界、重叠的块序列。
type Splitter interface {
	SplitText(text string, metadata map[string]string) []types.Chunk
	SplitDocument(doc types.Document) []types.Chunk
}

// TextSplitter 实现递归边界切分：依次尝试分隔符层级，
// 贪心累积片段，超限时冲洗缓冲并以末尾 overlap 个字符开启下一块。
type TextSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	logger       *zap.Logger
}

// NewTextSplitter 创建切分器。
// overlap >= size 或非正 size 在构造期即返回 CONFIG_ERROR，切分期不再校验。
func NewTextSplitter(cfg Config, logger *zap.Logger) (*TextSplitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, types.NewError(types.ErrConfig, "chunk_size must be positive")
	}
	if cfg.ChunkOverlap < 0 {
		return nil, types.NewError(types.ErrConfig, "chunk_overlap must not be negative")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, types.NewError(types.ErrConfig, "chunk_overlap must be smaller than chunk_size")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators()
	}
	return &TextSplitter{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		separators:   seps,
		logger:       logger.With(zap.String("component", "splitter")),
	}, nil
}

// ChunkSize 返回配置的块大小。
func (s *TextSplitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap 返回配置的重叠大小。
func (s *TextSplitter) ChunkOverlap() int { return s.chunkOverlap }

// SplitText 将文本切分为块并为每块打上共享元数据。
// 空白输入返回空序列，不是错误。
func (s *TextSplitter) SplitText(text string, metadata map[string]string) []types.Chunk {
	pieces := s.recursiveSplit(text, s.separators)

	chunks := make([]types.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, types.Chunk{
			Content:   p,
			Index:     i,
			CharCount: utf8.RuneCountInString(p),
			Metadata:  types.CloneMetadata(metadata),
		})
	}
	return chunks
}

// SplitDocument 逐页切分文档，保留页码引用。
// 块索引在每页内从 0 重新计数。
func (s *TextSplitter) SplitDocument(doc types.Document) []types.Chunk {
	return splitDocumentWith(s, doc)
}

// splitDocumentWith 是 SplitDocument 的共享实现，供代码感知变体复用。
func splitDocumentWith(sp Splitter, doc types.Document) []types.Chunk {
	name := doc.Name
	if name == "" {
		name = "unknown"
	}

	var chunks []types.Chunk
	for _, page := range doc.Pages {
		meta := map[string]string{
			types.MetaSource: name,
			types.MetaPage:   strconv.Itoa(page.Number),
		}
		if doc.ID != "" {
			meta[types.MetaDocumentID] = doc.ID
		}
		chunks = append(chunks, sp.SplitText(page.Text, meta)...)
	}
	return chunks
}

// recursiveSplit 用剩余的分隔符层级递归切分文本。
// 每次递归严格收窄层级列表，保证终止。
func (s *TextSplitter) recursiveSplit(text string, separators []string) []string {
	if text == "" {
		return nil
	}

	// 已经足够小，整体作为一块
	if utf8.RuneCountInString(text) <= s.chunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	for i, sep := range separators {
		if sep == "" {
			// 字符级兜底
			return s.splitBySize(text)
		}
		if !strings.Contains(text, sep) {
			continue
		}

		splits := strings.Split(text, sep)

		var chunks []string
		current := ""
		for _, sp := range splits {
			// 把分隔符拼回片段，信息不丢失
			piece := sp + sep

			if utf8.RuneCountInString(current)+utf8.RuneCountInString(piece) <= s.chunkSize {
				current += piece
				continue
			}

			// 当前块已满，冲洗
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}

			// 以上一块末尾 overlap 个字符开启新块
			if s.chunkOverlap > 0 && current != "" {
				current = tailRunes(current, s.chunkOverlap) + piece
			} else {
				current = piece
			}

			// 单个片段超限，递归使用更细的层级
			if utf8.RuneCountInString(current) > s.chunkSize {
				sub := s.recursiveSplit(current, separators[i+1:])
				if len(sub) > 0 {
					chunks = append(chunks, sub[:len(sub)-1]...)
					current = sub[len(sub)-1]
				}
			}
		}

		if strings.TrimSpace(current) != "" {
			chunks = append(chunks, strings.TrimSpace(current))
		}
		return chunks
	}

	// 所有分隔符都不存在于文本中
	return s.splitBySize(text)
}

// splitBySize 按固定大小滑动窗口切分：窗口 chunkSize，步进 chunkSize-chunkOverlap。
func (s *TextSplitter) splitBySize(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.chunkOverlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// tailRunes 返回 s 的最后 n 个码点。
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
