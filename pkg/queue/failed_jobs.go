package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// FailedJobRecord is a row in failed_jobs.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// GormStore writes exhausted jobs to failed_jobs. The table is created by
// the migrations.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) SaveFailed(ctx context.Context, f FailedJob) error {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return s.db.WithContext(ctx).Create(&FailedJobRecord{
		JobType:  f.Type,
		Payload:  string(f.Payload),
		Error:    msg,
		Attempts: f.Attempts,
		FailedAt: f.FailedAt,
	}).Error
}

// Recent lists the latest failures, newest first.
func (s *GormStore) Recent(ctx context.Context, limit int) ([]FailedJobRecord, error) {
	var out []FailedJobRecord
	err := s.db.WithContext(ctx).Order("failed_at desc").Limit(limit).Find(&out).Error
	return out, err
}
