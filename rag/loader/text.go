package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/BaSui01/edurag/types"
)

// TextLoader 加载纯文本和 Markdown 文件.
// 换页符（\f）分隔的段落映射为页；没有换页符时整个文件是第 1 页.
type TextLoader struct{}

// NewTextLoader 创建文本加载器.
func NewTextLoader() *TextLoader { return &TextLoader{} }

// Extensions 返回支持的扩展名.
func (*TextLoader) Extensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// Load 读取文件并拆分为页.
func (*TextLoader) Load(ctx context.Context, path string) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrCancelled, "load cancelled").WithCause(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "read file").WithCause(err)
	}

	doc := &types.Document{
		ID:   uuid.NewString(),
		Name: filepath.Base(path),
	}

	number := 1
	for _, part := range strings.Split(string(data), "\f") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		doc.Pages = append(doc.Pages, types.Page{Number: number, Text: part})
		number++
	}

	return doc, nil
}
