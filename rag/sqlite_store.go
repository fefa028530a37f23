package rag

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/edurag/types"
)

// entryRecord 是 Entry 的数据库映射.
// 向量和元数据以 JSON 存储，SQLite 没有原生向量类型，
// 最近邻查询在进程内对全量候选扫描完成.
type entryRecord struct {
	ID         string `gorm:"primaryKey"`
	DocumentID string `gorm:"index;not null"`
	Content    string `gorm:"not null"`
	Vector     string `gorm:"not null"`
	Metadata   string
	AddedAt    time.Time `gorm:"index"`
}

func (entryRecord) TableName() string { return "entries" }

// SQLiteStore 基于 SQLite 的持久化向量存储.
type SQLiteStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLiteStore 打开（或创建）数据库文件并迁移表结构.
// path 支持 ":memory:" 用于测试.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, types.NewError(types.ErrIndexUnavailable, "open sqlite store").WithCause(err)
	}

	if err := db.AutoMigrate(&entryRecord{}); err != nil {
		return nil, types.NewError(types.ErrIndexUnavailable, "migrate entries table").WithCause(err)
	}

	logger.Info("sqlite vector store ready", zap.String("path", path))

	return &SQLiteStore{
		db:     db,
		logger: logger.With(zap.String("component", "sqlite_store")),
	}, nil
}

// Upsert 在单个事务中写入一批条目，同 ID 覆盖.
func (s *SQLiteStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	records := make([]entryRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := toRecord(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&records).Error
	})
	if err != nil {
		return types.NewError(types.ErrIndexUnavailable, "upsert entries").WithCause(err)
	}

	s.logger.Debug("entries upserted", zap.Int("count", len(entries)))
	return nil
}

// Query 加载全量候选后在进程内做精确最近邻.
// 元数据以 JSON 存储，等值过滤与距离计算一起在解码后进行；
// rowid 排序保证距离并列时按插入顺序稳定.
func (s *SQLiteStore) Query(ctx context.Context, vector []float64, k int, filter map[string]string) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	var records []entryRecord
	if err := s.db.WithContext(ctx).Order("rowid").Find(&records).Error; err != nil {
		return nil, types.NewError(types.ErrIndexUnavailable, "load entries").WithCause(err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		e, err := fromRecord(rec)
		if err != nil {
			s.logger.Warn("skip corrupted entry", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		if !matchesFilter(e.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{Entry: e, Distance: cosineDistance(vector, e.Vector)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// DeleteByDocument 删除指定文档的全部条目.
func (s *SQLiteStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	res := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&entryRecord{})
	if res.Error != nil {
		return 0, types.NewError(types.ErrIndexUnavailable, "delete document entries").WithCause(res.Error)
	}

	deleted := int(res.RowsAffected)
	if deleted > 0 {
		s.logger.Info("document entries deleted",
			zap.String("document_id", documentID),
			zap.Int("deleted", deleted))
	}
	return deleted, nil
}

// Stats 返回条目与文档总数.
func (s *SQLiteStore) Stats(ctx context.Context) (StoreStats, error) {
	var entries, docs int64
	if err := s.db.WithContext(ctx).Model(&entryRecord{}).Count(&entries).Error; err != nil {
		return StoreStats{}, types.NewError(types.ErrIndexUnavailable, "count entries").WithCause(err)
	}
	err := s.db.WithContext(ctx).Model(&entryRecord{}).
		Distinct("document_id").Count(&docs).Error
	if err != nil {
		return StoreStats{}, types.NewError(types.ErrIndexUnavailable, "count documents").WithCause(err)
	}
	return StoreStats{TotalEntries: int(entries), TotalDocuments: int(docs)}, nil
}

// ListDocuments 按首次入库时间列出文档.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]DocumentGroup, error) {
	var records []entryRecord
	if err := s.db.WithContext(ctx).Order("rowid").Find(&records).Error; err != nil {
		return nil, types.NewError(types.ErrIndexUnavailable, "load entries").WithCause(err)
	}

	order := make([]string, 0)
	groups := make(map[string]*DocumentGroup)
	for _, rec := range records {
		g, ok := groups[rec.DocumentID]
		if !ok {
			var meta map[string]string
			if rec.Metadata != "" {
				_ = json.Unmarshal([]byte(rec.Metadata), &meta)
			}
			g = &DocumentGroup{
				DocumentID: rec.DocumentID,
				Source:     meta[types.MetaSource],
				FirstAdded: rec.AddedAt,
			}
			groups[rec.DocumentID] = g
			order = append(order, rec.DocumentID)
		}
		g.ChunkCount++
		if rec.AddedAt.Before(g.FirstAdded) {
			g.FirstAdded = rec.AddedAt
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

// Close 关闭底层连接.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(e Entry) (entryRecord, error) {
	vec, err := json.Marshal(e.Vector)
	if err != nil {
		return entryRecord{}, types.NewError(types.ErrIndexUnavailable, "encode vector").WithCause(err)
	}
	meta := ""
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return entryRecord{}, types.NewError(types.ErrIndexUnavailable, "encode metadata").WithCause(err)
		}
		meta = string(data)
	}
	return entryRecord{
		ID:         e.ID,
		DocumentID: e.DocumentID,
		Content:    e.Content,
		Vector:     string(vec),
		Metadata:   meta,
		AddedAt:    e.AddedAt,
	}, nil
}

func fromRecord(rec entryRecord) (Entry, error) {
	var vec []float64
	if err := json.Unmarshal([]byte(rec.Vector), &vec); err != nil {
		return Entry{}, err
	}
	var meta map[string]string
	if rec.Metadata != "" {
		if err := json.Unmarshal([]byte(rec.Metadata), &meta); err != nil {
			return Entry{}, err
		}
	}
	return Entry{
		ID:         rec.ID,
		DocumentID: rec.DocumentID,
		Content:    rec.Content,
		Vector:     vec,
		Metadata:   meta,
		AddedAt:    rec.AddedAt,
	}, nil
}
