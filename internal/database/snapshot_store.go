package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smartresume/internal/store"
)

// SnapshotStore 用 resume_snapshots 表实现 store.Persister。
type SnapshotStore struct {
	db *gorm.DB
}

var _ store.Persister = (*SnapshotStore)(nil)

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	var snap Snapshot
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return []byte(snap.Content), nil
}

// Save 按 key 插入或覆盖快照。
func (s *SnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	snap := Snapshot{Key: key, Content: datatypes.JSON(data)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}
