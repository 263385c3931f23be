package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"smartresume/internal/config"
)

// InitDatabase 连接 PostgreSQL。
func InitDatabase(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	return Open(postgres.Open(cfg.DSN()), logger, cfg.Debug)
}

// Open 用任意方言打开数据库并设置连接池。SQL 日志写入 logger，debug 为 true 时记录每条语句。
func Open(dialector gorm.Dialector, logger *slog.Logger, debug bool) (*gorm.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.NewSlogLogger(logger.With(slog.String("component", "gorm")), gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate 建表：snapshots 保存文档，exports 记录 PDF 导出。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Snapshot{}, &Export{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
