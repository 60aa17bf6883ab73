// Package sqlite is a single-file repo.Store backed by GORM and a pure-Go
// SQLite driver.
package sqlite

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

type targetRow struct {
	ID          string `gorm:"primaryKey"`
	IntervalSec int
	Paused      bool
	CreatedAt   time.Time
}

func (targetRow) TableName() string { return "targets" }

type recordRow struct {
	ID             uint   `gorm:"primaryKey"`
	TargetID       string `gorm:"index:idx_record_target_ts,priority:1"`
	TsUnixNano     int64  `gorm:"index:idx_record_target_ts,priority:2"`
	Status         string
	Reason         string
	ResponseTimeMS float64
	RollingAvgMS   float64
	HTTPStatus     int
}

func (recordRow) TableName() string { return "health_records" }

type Store struct {
	DB *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&targetRow{}, &recordRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) LoadTargets(ctx context.Context) ([]domain.Target, error) {
	var rows []targetRow
	if err := s.DB.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	out := make([]domain.Target, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Target{
			ID:          domain.TargetID(r.ID),
			IntervalSec: r.IntervalSec,
			Paused:      r.Paused,
			CreatedAt:   r.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (s *Store) SaveTarget(ctx context.Context, t domain.Target) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	row := targetRow{ID: string(t.ID), IntervalSec: t.IntervalSec, Paused: t.Paused, CreatedAt: t.CreatedAt.UTC()}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"interval_sec", "paused"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert target: %w", err)
	}
	return nil
}

func (s *Store) DeleteTarget(ctx context.Context, id domain.TargetID) error {
	res := s.DB.WithContext(ctx).Where("id = ?", string(id)).Delete(&targetRow{})
	if res.Error != nil {
		return fmt.Errorf("delete target: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) SaveCheckResult(ctx context.Context, rec domain.HealthRecord) error {
	row := recordRow{
		TargetID:       string(rec.TargetID),
		TsUnixNano:     rec.Timestamp.UnixNano(),
		Status:         string(rec.Status),
		Reason:         rec.Reason,
		ResponseTimeMS: rec.ResponseTimeMS,
		RollingAvgMS:   rec.RollingAvgMS,
		HTTPStatus:     rec.HTTPStatus,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert health record: %w", err)
	}
	return nil
}

func (s *Store) LoadHistory(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HealthRecord, error) {
	return s.LoadRecentHistory(ctx, id, since, 0)
}

func (s *Store) LoadRecentHistory(ctx context.Context, id domain.TargetID, since time.Time, limit int) ([]domain.HealthRecord, error) {
	q := s.DB.WithContext(ctx).Where("target_id = ?", string(id))
	if !since.IsZero() {
		q = q.Where("ts_unix_nano >= ?", since.UnixNano())
	}
	var rows []recordRow
	if limit > 0 {
		q = q.Order("ts_unix_nano DESC, id DESC").Limit(limit)
	} else {
		q = q.Order("ts_unix_nano, id")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if limit > 0 {
		slices.Reverse(rows)
	}
	out := make([]domain.HealthRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.HealthRecord{
			TargetID:       id,
			Timestamp:      time.Unix(0, r.TsUnixNano).UTC(),
			Status:         domain.Status(r.Status),
			Reason:         r.Reason,
			ResponseTimeMS: r.ResponseTimeMS,
			RollingAvgMS:   r.RollingAvgMS,
			HTTPStatus:     r.HTTPStatus,
		})
	}
	return out, nil
}

func (s *Store) DeleteHistory(ctx context.Context, id domain.TargetID) error {
	if err := s.DB.WithContext(ctx).Where("target_id = ?", string(id)).Delete(&recordRow{}).Error; err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
