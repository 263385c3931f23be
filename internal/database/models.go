package database

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot 保存一个存储键下的完整简历信封。
type Snapshot struct {
	ID        uint           `gorm:"primaryKey"`
	Key       string         `gorm:"uniqueIndex;size:128;not null"`
	Content   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Snapshot) TableName() string {
	return "resume_snapshots"
}

// Export 记录一次 PDF 导出任务。
type Export struct {
	ID            string `gorm:"primaryKey;size:36"`
	SessionID     string `gorm:"index;size:64;not null"`
	Template      string `gorm:"size:32"`
	Status        string `gorm:"size:32;index"`
	ObjectKey     string `gorm:"size:512"`
	ErrorCode     int
	ErrorMessage  string `gorm:"size:1024"`
	CorrelationID string `gorm:"size:64"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
