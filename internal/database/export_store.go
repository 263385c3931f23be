package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"smartresume/internal/notify"
)

var ErrExportNotFound = errors.New("export not found")

// ExportStore 读写 exports 表。
type ExportStore struct {
	db *gorm.DB
}

func NewExportStore(db *gorm.DB) *ExportStore {
	return &ExportStore{db: db}
}

func (s *ExportStore) Create(ctx context.Context, export *Export) error {
	if export.Status == "" {
		export.Status = notify.ExportStatusPending
	}
	if err := s.db.WithContext(ctx).Create(export).Error; err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	return nil
}

// Get 只返回属于 sessionID 的导出记录。
func (s *ExportStore) Get(ctx context.Context, sessionID, id string) (*Export, error) {
	var export Export
	err := s.db.WithContext(ctx).Where("id = ? AND session_id = ?", id, sessionID).First(&export).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get export: %w", err)
	}
	return &export, nil
}

func (s *ExportStore) MarkCompleted(ctx context.Context, id, objectKey string) error {
	return s.update(ctx, id, map[string]interface{}{
		"status":        notify.ExportStatusCompleted,
		"object_key":    objectKey,
		"error_code":    0,
		"error_message": "",
	})
}

func (s *ExportStore) MarkFailed(ctx context.Context, id string, code int, message string) error {
	return s.update(ctx, id, map[string]interface{}{
		"status":        notify.ExportStatusError,
		"error_code":    code,
		"error_message": message,
	})
}

func (s *ExportStore) update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&Export{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update export %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrExportNotFound
	}
	return nil
}
