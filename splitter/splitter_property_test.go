package splitter

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// 性质：任意文本、任意合法配置下，每个块修剪后非空且不超过 chunk_size。
func TestSplitText_Property_BoundedNonEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(5, 120).Draw(t, "size")
		overlap := rapid.IntRange(0, size-1).Draw(t, "overlap")

		text := rapid.StringOfN(
			rapid.RuneFrom([]rune("abcdefgh。.，, \n树表栈")),
			0, 2000, -1,
		).Draw(t, "text")

		s, err := NewTextSplitter(Config{ChunkSize: size, ChunkOverlap: overlap}, zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected config error: %v", err)
		}

		chunks := s.SplitText(text, nil)

		if strings.TrimSpace(text) == "" && len(chunks) != 0 {
			t.Fatalf("whitespace-only input produced %d chunks", len(chunks))
		}

		for i, c := range chunks {
			if strings.TrimSpace(c.Content) == "" {
				t.Fatalf("chunk %d is empty after trimming", i)
			}
			if n := utf8.RuneCountInString(c.Content); n > size {
				t.Fatalf("chunk %d has %d chars, limit %d", i, n, size)
			}
			if c.Index != i {
				t.Fatalf("chunk %d carries index %d", i, c.Index)
			}
			if c.CharCount != utf8.RuneCountInString(c.Content) {
				t.Fatalf("chunk %d char count mismatch", i)
			}
		}
	})
}

// 性质：块内容按序拼接后覆盖输入的全部非空白字符。
// 重叠会重复字符、修剪会去掉空白，所以断言的是子序列而非相等：
// 输入的每个非空白字符都要按原顺序出现在拼接结果里。
func TestSplitText_Property_Reconstruction(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(5, 120).Draw(t, "size")
		overlap := rapid.IntRange(0, size-1).Draw(t, "overlap")

		text := rapid.StringOfN(
			rapid.RuneFrom([]rune("abcdefgh。.，, \n树表栈")),
			0, 2000, -1,
		).Draw(t, "text")

		s, err := NewTextSplitter(Config{ChunkSize: size, ChunkOverlap: overlap}, zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected config error: %v", err)
		}

		var joined []rune
		for _, c := range s.SplitText(text, nil) {
			joined = append(joined, []rune(c.Content)...)
		}

		pos := 0
		for _, r := range text {
			if unicode.IsSpace(r) {
				continue
			}
			for pos < len(joined) && joined[pos] != r {
				pos++
			}
			if pos == len(joined) {
				t.Fatalf("rune %q of input missing from concatenated chunks", r)
			}
			pos++
		}
	})
}

// 性质：非空输入永远产出至少一个块（非空白内容不会被静默丢弃）。
func TestSplitText_Property_NoSilentDrop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(5, 80).Draw(t, "size")
		overlap := rapid.IntRange(0, size/2).Draw(t, "overlap")

		// 保证存在非空白内容
		body := rapid.StringOfN(rapid.RuneFrom([]rune("xy。z，w ")), 1, 500, -1).Draw(t, "body")
		text := "k" + body

		s, err := NewTextSplitter(Config{ChunkSize: size, ChunkOverlap: overlap}, zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected config error: %v", err)
		}

		if chunks := s.SplitText(text, nil); len(chunks) == 0 {
			t.Fatalf("non-blank input of %d runes produced no chunks", utf8.RuneCountInString(text))
		}
	})
}
