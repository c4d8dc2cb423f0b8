package models

import "time"

// Check is one job result of a workflow run. Rows are written to the table
// named by the ci_db_table_name setting.
type Check struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	RunID             string `gorm:"size:36;index"`
	Workflow          string `gorm:"size:128;index"`
	PullRequestNumber int    `gorm:"index"`
	CommitSHA         string `gorm:"size:40;index"`
	BaseRef           string `gorm:"size:255"`
	HeadRef           string `gorm:"size:255"`
	CheckName         string `gorm:"size:255;not null;index"`
	CheckStatus       string `gorm:"size:16;default:pending;index"`
	CheckStartTime    time.Time
	CheckDurationMs   int64
	Cached            bool   `gorm:"default:false"`
	Digest            string `gorm:"size:64"`
	ExitCode          int
	InstanceType      string `gorm:"size:255"`
	Info              string `gorm:"type:text"`
	ReportURL         string `gorm:"type:text"`
}
