package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/tradetok/internal/model"
)

// gormSnapshotRepository sqlite / postgres 介质，一键一行
type gormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository 创建 sql 介质并迁移 snapshots 表
func NewGormSnapshotRepository(db *gorm.DB) (SnapshotRepository, error) {
	if err := db.AutoMigrate(&model.Snapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshots table: %w", err)
	}
	return &gormSnapshotRepository{db: db}, nil
}

func (r *gormSnapshotRepository) Load(ctx context.Context, key string) (string, bool, error) {
	var snap model.Snapshot
	err := r.db.WithContext(ctx).Where("snapshot_key = ?", key).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return snap.Value, true, nil
}

func (r *gormSnapshotRepository) Save(ctx context.Context, key, value string) error {
	snap := &model.Snapshot{Key: key, Value: value}
	// upsert：整份覆盖
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(snap).Error
}

func (r *gormSnapshotRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&model.Snapshot{}).Error
}

func (r *gormSnapshotRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&model.Snapshot{}).Order("snapshot_key").Pluck("snapshot_key", &keys).Error
	return keys, err
}

// Close 关闭数据库连接
func (r *gormSnapshotRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
