package models

import "time"

// JobLog captures a chunk of job output for debugging.
type JobLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"size:36;index:idx_run_job"`
	JobName   string `gorm:"size:255;index:idx_run_job"`
	Direction string `gorm:"size:4"`
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}
