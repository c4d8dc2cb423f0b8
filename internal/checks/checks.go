// Package checks records workflow runs, job results and job output in the CI database.
package checks

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zulandar/praktika/internal/models"
)

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("checks: run not found")

// Store reads and writes CI results. Check rows live in Table.
type Store struct {
	db    *gorm.DB
	table string
}

// NewStore returns a Store writing checks to table.
func NewStore(db *gorm.DB, table string) *Store {
	return &Store{db: db, table: table}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) checks() *gorm.DB {
	return s.db.Table(s.table)
}

// Filter narrows ListChecks results. Zero fields match everything.
type Filter struct {
	RunID     string
	Workflow  string
	CommitSHA string
	CheckName string
	Status    string
	PRNumber  int
	Limit     int
}

// CreateRun inserts a new workflow run in running state.
func (s *Store) CreateRun(run *models.WorkflowRun) error {
	if run.ID == "" || run.Workflow == "" {
		return fmt.Errorf("checks: run id and workflow are required")
	}
	if run.Status == "" {
		run.Status = models.StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("checks: create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun marks a run finished with status and an optional report URL.
func (s *Store) FinishRun(runID, status, reportURL string) error {
	now := time.Now()
	result := s.db.Model(&models.WorkflowRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":      status,
		"report_url":  reportURL,
		"finished_at": &now,
	})
	if result.Error != nil {
		return fmt.Errorf("checks: finish run %s: %w", runID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun returns one workflow run.
func (s *Store) GetRun(runID string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun
	err := s.db.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("checks: get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]models.WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.WorkflowRun
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("checks: list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the newest run of a workflow for a commit.
func (s *Store) LatestRun(workflowName, commitSHA string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun
	err := s.db.Where("workflow = ? AND commit_sha = ?", workflowName, commitSHA).
		Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s@%s", ErrRunNotFound, workflowName, commitSHA)
	}
	if err != nil {
		return nil, fmt.Errorf("checks: latest run: %w", err)
	}
	return &run, nil
}

// RecordCheck inserts one job result.
func (s *Store) RecordCheck(c *models.Check) error {
	if c.CheckName == "" {
		return fmt.Errorf("checks: check name is required")
	}
	if err := s.checks().Create(c).Error; err != nil {
		return fmt.Errorf("checks: record %q: %w", c.CheckName, err)
	}
	return nil
}

// ListChecks returns job results matching f, newest first.
func (s *Store) ListChecks(f Filter) ([]models.Check, error) {
	q := s.checks()
	if f.RunID != "" {
		q = q.Where("run_id = ?", f.RunID)
	}
	if f.Workflow != "" {
		q = q.Where("workflow = ?", f.Workflow)
	}
	if f.CommitSHA != "" {
		q = q.Where("commit_sha = ?", f.CommitSHA)
	}
	if f.CheckName != "" {
		q = q.Where("check_name = ?", f.CheckName)
	}
	if f.Status != "" {
		q = q.Where("check_status = ?", f.Status)
	}
	if f.PRNumber > 0 {
		q = q.Where("pull_request_number = ?", f.PRNumber)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Check
	if err := q.Order("check_start_time DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("checks: list: %w", err)
	}
	return out, nil
}

// AppendLog stores a chunk of job output.
func (s *Store) AppendLog(l models.JobLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if err := s.db.Create(&l).Error; err != nil {
		return fmt.Errorf("checks: append log for %q: %w", l.JobName, err)
	}
	return nil
}

// Logs returns a job's output chunks in write order.
func (s *Store) Logs(runID, jobName string) ([]models.JobLog, error) {
	var logs []models.JobLog
	if err := s.db.Where("run_id = ? AND job_name = ?", runID, jobName).
		Order("id ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("checks: logs for %q: %w", jobName, err)
	}
	return logs, nil
}
