package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/edurag/types"
)

func newCodeSplitter(t *testing.T, size, overlap int) *CodeAwareSplitter {
	t.Helper()
	s, err := NewCodeAwareSplitter(Config{ChunkSize: size, ChunkOverlap: overlap}, nil, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestCodeAware_FencedBlockPreserved(t *testing.T) {
	s := newCodeSplitter(t, 200, 20)

	code := "```go\nfunc insert(root *Node, v int) *Node {\n\treturn root\n}\n```"
	text := "二叉搜索树的插入操作如下。\n\n" + code + "\n\n插入后需要保持有序性质。"

	chunks := s.SplitText(text, nil)
	require.NotEmpty(t, chunks)

	var codeChunks []types.Chunk
	for _, c := range chunks {
		if c.IsCode {
			codeChunks = append(codeChunks, c)
		}
	}
	require.Len(t, codeChunks, 1)

	// 代码块逐字节保留，不做修剪
	assert.Equal(t, code, codeChunks[0].Content)
	assert.Equal(t, utf8.RuneCountInString(code), codeChunks[0].CharCount)
}

func TestCodeAware_OversizedBlockResplit(t *testing.T) {
	s := newCodeSplitter(t, 50, 10)

	// 超过 2×chunk_size 的代码块退回常规切分
	body := strings.Repeat("x := x + 1\n", 30)
	text := "```\n" + body + "```"
	require.Greater(t, utf8.RuneCountInString(text), 100)

	chunks := s.SplitText(text, nil)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.False(t, c.IsCode, "chunk %d should not be tagged as code", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 50, "chunk %d", i)
	}
}

func TestCodeAware_IndentedCodeDetected(t *testing.T) {
	s := newCodeSplitter(t, 300, 30)

	text := "栈的数组实现：\n" +
		"    top := -1\n" +
		"    data := make([]int, cap)\n" +
		"    push 时 top 自增\n" +
		"以上是核心字段。"

	chunks := s.SplitText(text, nil)

	var found bool
	for _, c := range chunks {
		if c.IsCode {
			found = true
			assert.Contains(t, c.Content, "top := -1")
		}
	}
	assert.True(t, found, "indented run should be tagged as code")
}

func TestCodeAware_NoCodeFallsThrough(t *testing.T) {
	s := newCodeSplitter(t, 100, 10)

	text := "纯文本内容，没有任何代码块。"
	chunks := s.SplitText(text, nil)

	require.Len(t, chunks, 1)
	assert.False(t, chunks[0].IsCode)
	assert.Equal(t, text, chunks[0].Content)
}

func TestCodeAware_SequentialIndices(t *testing.T) {
	s := newCodeSplitter(t, 60, 10)

	text := "段落一介绍链表。链表由结点构成，结点包含数据域和指针域。\n\n" +
		"```c\nstruct Node { int data; struct Node *next; };\n```\n\n" +
		"段落二介绍双向链表。每个结点有前驱和后继两个指针。"

	chunks := s.SplitText(text, nil)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "indices must be sequential over the final sequence")
	}
}

func TestCodeAware_CustomSpanFinder(t *testing.T) {
	// 可插拔检测：保护 <<...>> 区间
	finder := func(text string) [][2]int {
		start := strings.Index(text, "<<")
		if start < 0 {
			return nil
		}
		end := strings.Index(text[start:], ">>")
		if end < 0 {
			return nil
		}
		return [][2]int{{start, start + end + 2}}
	}

	s, err := NewCodeAwareSplitter(Config{ChunkSize: 100, ChunkOverlap: 10}, finder, zap.NewNop())
	require.NoError(t, err)

	chunks := s.SplitText("before <<protected span>> after", nil)

	var protected int
	for _, c := range chunks {
		if c.IsCode {
			protected++
			assert.Equal(t, "<<protected span>>", c.Content)
		}
	}
	assert.Equal(t, 1, protected)
}

func TestCodeAware_SplitDocument(t *testing.T) {
	s := newCodeSplitter(t, 200, 20)

	doc := types.Document{
		ID:   "doc-42",
		Name: "算法笔记.md",
		Pages: []types.Page{
			{Number: 1, Text: "快速排序。\n\n```\nquicksort(a, lo, hi)\n```"},
		},
	}

	chunks := s.SplitDocument(doc)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, "算法笔记.md", c.Metadata[types.MetaSource])
		assert.Equal(t, "1", c.Metadata[types.MetaPage])
		assert.Equal(t, "doc-42", c.Metadata[types.MetaDocumentID])
	}
}
