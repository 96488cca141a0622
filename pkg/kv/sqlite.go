package kv

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// entry is the single-table layout backing the SQLite store.
type entry struct {
	Key   string `gorm:"column:k;primaryKey"`
	Value string `gorm:"column:v;not null"`
}

func (entry) TableName() string { return "kv_entries" }

// SQLite persists keys in a local database file, the durable per-profile
// store for single-instance deployments.
type SQLite struct {
	db *gorm.DB
}

// NewSQLite opens (or creates) the database file and ensures the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrate kv schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var row entry
	err := s.db.WithContext(ctx).First(&row, "k = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "k"}},
			DoUpdates: clause.AssignmentColumns([]string{"v"}),
		}).
		Create(&entry{Key: key, Value: value}).Error
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&entry{}, "k = ?", key).Error
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
