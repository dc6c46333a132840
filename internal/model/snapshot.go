package model

import "time"

// Snapshot 介质中的一条快照（sql 介质的表结构）
type Snapshot struct {
	Key       string `gorm:"column:snapshot_key;primaryKey;type:varchar(128)"`
	Value     string `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Snapshot) TableName() string { return "snapshots" }
