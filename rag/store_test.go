package rag

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/edurag/types"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
		{"dimension mismatch", []float64{1}, []float64{1, 0}, 1},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 1},
		{"empty", nil, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.3))
	assert.Equal(t, 1.0, clamp01(1.7))
	assert.Equal(t, 0.5, clamp01(0.5))
}

// storeFactory 让内存与 SQLite 实现共享同一组契约测试.
type storeFactory struct {
	name string
	make func(t *testing.T) VectorStore
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{
			name: "memory",
			make: func(t *testing.T) VectorStore {
				return NewMemoryStore(zaptest.NewLogger(t))
			},
		},
		{
			name: "sqlite",
			make: func(t *testing.T) VectorStore {
				store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t))
				require.NoError(t, err)
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		},
	}
}

func entry(id, docID, content string, vec []float64, added time.Time) Entry {
	return Entry{
		ID:         id,
		DocumentID: docID,
		Content:    content,
		Vector:     vec,
		Metadata:   map[string]string{types.MetaSource: docID + ".pdf", types.MetaPage: "1"},
		AddedAt:    added,
	}
}

func TestVectorStore_Contract(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store := f.make(t)
			now := time.Now().Truncate(time.Second)

			err := store.Upsert(ctx, []Entry{
				entry("d1_0", "d1", "栈是后进先出的线性表", []float64{1, 0, 0}, now),
				entry("d1_1", "d1", "队列是先进先出的线性表", []float64{0.9, 0.1, 0}, now),
				entry("d2_0", "d2", "二叉树的遍历", []float64{0, 1, 0}, now.Add(time.Second)),
			})
			require.NoError(t, err)

			t.Run("query ranks by distance", func(t *testing.T) {
				matches, err := store.Query(ctx, []float64{1, 0, 0}, 2, nil)
				require.NoError(t, err)
				require.Len(t, matches, 2)
				assert.Equal(t, "d1_0", matches[0].Entry.ID)
				assert.Equal(t, "d1_1", matches[1].Entry.ID)
				assert.Less(t, matches[0].Distance, matches[1].Distance)
			})

			t.Run("query k larger than store", func(t *testing.T) {
				matches, err := store.Query(ctx, []float64{1, 0, 0}, 100, nil)
				require.NoError(t, err)
				assert.Len(t, matches, 3)
			})

			t.Run("query zero k", func(t *testing.T) {
				matches, err := store.Query(ctx, []float64{1, 0, 0}, 0, nil)
				require.NoError(t, err)
				assert.Empty(t, matches)
			})

			t.Run("tie broken by insertion order", func(t *testing.T) {
				// d1_0 与 d2_0 到查询向量距离相同
				matches, err := store.Query(ctx, []float64{1, 1, 0}, 3, nil)
				require.NoError(t, err)
				require.Len(t, matches, 3)
				assert.Equal(t, "d1_1", matches[0].Entry.ID)
				assert.Equal(t, "d1_0", matches[1].Entry.ID)
				assert.Equal(t, "d2_0", matches[2].Entry.ID)
			})

			t.Run("stats", func(t *testing.T) {
				st, err := store.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, 3, st.TotalEntries)
				assert.Equal(t, 2, st.TotalDocuments)
			})

			t.Run("list documents ordered by first added", func(t *testing.T) {
				groups, err := store.ListDocuments(ctx)
				require.NoError(t, err)
				require.Len(t, groups, 2)
				assert.Equal(t, "d1", groups[0].DocumentID)
				assert.Equal(t, 2, groups[0].ChunkCount)
				assert.Equal(t, "d1.pdf", groups[0].Source)
				assert.Equal(t, "d2", groups[1].DocumentID)
			})

			t.Run("filter restricts to matching metadata", func(t *testing.T) {
				matches, err := store.Query(ctx, []float64{1, 1, 0}, 10,
					map[string]string{types.MetaSource: "d1.pdf"})
				require.NoError(t, err)
				require.Len(t, matches, 2)
				assert.Equal(t, "d1_1", matches[0].Entry.ID)
				assert.Equal(t, "d1_0", matches[1].Entry.ID)

				// 多键过滤按与语义：任意一键不匹配即排除
				matches, err = store.Query(ctx, []float64{1, 1, 0}, 10,
					map[string]string{types.MetaSource: "d1.pdf", types.MetaPage: "2"})
				require.NoError(t, err)
				assert.Empty(t, matches)

				matches, err = store.Query(ctx, []float64{1, 1, 0}, 10,
					map[string]string{types.MetaSource: "ghost.pdf"})
				require.NoError(t, err)
				assert.Empty(t, matches)
			})

			t.Run("upsert same id overwrites", func(t *testing.T) {
				err := store.Upsert(ctx, []Entry{
					entry("d1_0", "d1", "更新后的内容", []float64{0, 0, 1}, now),
				})
				require.NoError(t, err)

				st, err := store.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, 3, st.TotalEntries)

				matches, err := store.Query(ctx, []float64{0, 0, 1}, 1, nil)
				require.NoError(t, err)
				assert.Equal(t, "更新后的内容", matches[0].Entry.Content)
			})

			t.Run("delete by document", func(t *testing.T) {
				deleted, err := store.DeleteByDocument(ctx, "d1")
				require.NoError(t, err)
				assert.Equal(t, 2, deleted)

				st, err := store.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, st.TotalEntries)
				assert.Equal(t, 1, st.TotalDocuments)
			})

			t.Run("delete missing document returns zero", func(t *testing.T) {
				deleted, err := store.DeleteByDocument(ctx, "ghost")
				require.NoError(t, err)
				assert.Zero(t, deleted)
			})
		})
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := NewSQLiteStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []Entry{
		entry("d1_0", "d1", "哈希冲突的处理", []float64{0.5, 0.5}, time.Now()),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer reopened.Close()

	matches, err := reopened.Query(ctx, []float64{0.5, 0.5}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "哈希冲突的处理", matches[0].Entry.Content)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zaptest.NewLogger(t))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = store.Upsert(ctx, []Entry{
				entry("a_0", "a", "content", []float64{1, 0}, time.Now()),
			})
		}
	}()
	for i := 0; i < 50; i++ {
		_, err := store.Query(ctx, []float64{1, 0}, 5, nil)
		require.NoError(t, err)
	}
	<-done
}
