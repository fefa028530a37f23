// Package loader 将本地文件解析为可切分的文档.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BaSui01/edurag/types"
)

// Loader 解析某一类文件为文档.
type Loader interface {
	// Load 读取并解析文件.
	Load(ctx context.Context, path string) (*types.Document, error)

	// Extensions 返回支持的扩展名（含点，小写）.
	Extensions() []string
}

// Registry 按扩展名分发到对应的 Loader.
type Registry struct {
	byExt map[string]Loader
}

// NewRegistry 创建注册表并注册内置的文本加载器.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Loader)}
	r.Register(NewTextLoader())
	return r
}

// Register 注册一个加载器，后注册的覆盖同扩展名的旧实现.
func (r *Registry) Register(l Loader) {
	for _, ext := range l.Extensions() {
		r.byExt[strings.ToLower(ext)] = l
	}
}

// Load 根据扩展名选择加载器并解析文件.
func (r *Registry) Load(ctx context.Context, path string) (*types.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := r.byExt[ext]
	if !ok {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("unsupported file type %q", ext))
	}
	return l.Load(ctx, path)
}

// Supported 返回全部已注册的扩展名.
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}
