package rag

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/edurag/types"
)

// MemoryStore 是内存向量存储，用于测试和小规模知识库.
// 条目按插入顺序保存，保证距离并列时的稳定排序.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int
	logger  *zap.Logger
}

// NewMemoryStore 创建内存存储.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		byID:   make(map[string]int),
		logger: logger.With(zap.String("component", "memory_store")),
	}
}

// Upsert 写入一批条目，同 ID 原地覆盖以保留插入位次.
func (s *MemoryStore) Upsert(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if i, ok := s.byID[e.ID]; ok {
			s.entries[i] = e
			continue
		}
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}

	s.logger.Debug("entries upserted",
		zap.Int("count", len(entries)),
		zap.Int("total", len(s.entries)))
	return nil
}

// Query 全量扫描计算余弦距离，返回最近的 k 个条目.
// filter 非空时先按元数据等值过滤候选.
func (s *MemoryStore) Query(_ context.Context, vector []float64, k int, filter map[string]string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(s.entries))
	for _, e := range s.entries {
		if !matchesFilter(e.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{Entry: e, Distance: cosineDistance(vector, e.Vector)})
	}

	// SliceStable 保留插入顺序作为并列时的次序.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// DeleteByDocument 删除指定文档的全部条目.
func (s *MemoryStore) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	deleted := 0
	for _, e := range s.entries {
		if e.DocumentID == documentID {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept

	// 重建 ID 索引以反映新的位次.
	s.byID = make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		s.byID[e.ID] = i
	}

	if deleted > 0 {
		s.logger.Info("document entries deleted",
			zap.String("document_id", documentID),
			zap.Int("deleted", deleted))
	}
	return deleted, nil
}

// Stats 返回条目与文档总数.
func (s *MemoryStore) Stats(_ context.Context) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, e := range s.entries {
		docs[e.DocumentID] = struct{}{}
	}
	return StoreStats{TotalEntries: len(s.entries), TotalDocuments: len(docs)}, nil
}

// ListDocuments 按首次入库时间列出文档.
func (s *MemoryStore) ListDocuments(_ context.Context) ([]DocumentGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make([]string, 0)
	groups := make(map[string]*DocumentGroup)
	for _, e := range s.entries {
		g, ok := groups[e.DocumentID]
		if !ok {
			g = &DocumentGroup{
				DocumentID: e.DocumentID,
				Source:     e.Metadata[types.MetaSource],
				FirstAdded: e.AddedAt,
			}
			groups[e.DocumentID] = g
			order = append(order, e.DocumentID)
		}
		g.ChunkCount++
		if e.AddedAt.Before(g.FirstAdded) {
			g.FirstAdded = e.AddedAt
		}
	}

	out := make([]DocumentGroup, 0, len(order))
	for _, id := range order {
		out = append(out, *groups[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FirstAdded.Before(out[j].FirstAdded)
	})
	return out, nil
}

// Close 对内存存储无资源可释放.
func (s *MemoryStore) Close() error { return nil }
