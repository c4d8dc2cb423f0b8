package models

import "time"

// WorkflowRun is a single execution of a workflow for one commit.
type WorkflowRun struct {
	ID                string `gorm:"primaryKey;size:36"`
	Workflow          string `gorm:"size:128;not null;index"`
	Event             string `gorm:"size:32"`
	CommitSHA         string `gorm:"size:40;index"`
	PullRequestNumber int
	BaseRef           string `gorm:"size:255"`
	HeadRef           string `gorm:"size:255"`
	Status            string `gorm:"size:16;default:running;index"`
	ReportURL         string `gorm:"type:text"`
	StartedAt         time.Time
	FinishedAt        *time.Time
}
