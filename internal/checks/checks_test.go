package checks

import (
	"errors"
	"testing"
	"time"

	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/db"
	"github.com/zulandar/praktika/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	gormDB, err := db.Connect(config.DBConfig{Driver: "sqlite", Path: ":memory:"}, "")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gormDB, "checks"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(gormDB, "checks")
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)
	run := &models.WorkflowRun{ID: "run-1", Workflow: "PullRequestCI", CommitSHA: "abc"}
	if err := s.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Status != models.StatusRunning {
		t.Errorf("Status = %q, want running", run.Status)
	}

	if err := s.FinishRun("run-1", models.StatusSuccess, "https://report"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != models.StatusSuccess || got.ReportURL != "https://report" {
		t.Errorf("run = %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestCreateRun_RequiresIDs(t *testing.T) {
	s := testStore(t)
	if err := s.CreateRun(&models.WorkflowRun{Workflow: "w"}); err == nil {
		t.Error("expected error for missing id")
	}
}

func TestRunNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun error = %v, want ErrRunNotFound", err)
	}
	if err := s.FinishRun("nope", models.StatusFailure, ""); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun error = %v, want ErrRunNotFound", err)
	}
	if _, err := s.LatestRun("w", "sha"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRun error = %v, want ErrRunNotFound", err)
	}
}

func TestLatestRunAndListRuns(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		run := &models.WorkflowRun{ID: id, Workflow: "PullRequestCI", CommitSHA: "abc", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.CreateRun(run); err != nil {
			t.Fatal(err)
		}
	}
	latest, err := s.LatestRun("PullRequestCI", "abc")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != "r3" {
		t.Errorf("LatestRun = %s, want r3", latest.ID)
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Errorf("ListRuns = %v, want r3, r2", runs)
	}
}

func TestRecordAndListChecks(t *testing.T) {
	s := testStore(t)
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.Check{
		{RunID: "r1", Workflow: "PullRequestCI", CommitSHA: "abc", CheckName: "Style Check", CheckStatus: models.StatusSuccess, CheckStartTime: start},
		{RunID: "r1", Workflow: "PullRequestCI", CommitSHA: "abc", CheckName: "Build", CheckStatus: models.StatusFailure, CheckStartTime: start.Add(time.Second)},
		{RunID: "r2", Workflow: "PullRequestCI", CommitSHA: "def", CheckName: "Style Check", CheckStatus: models.StatusSuccess, CheckStartTime: start.Add(time.Minute), PullRequestNumber: 7},
	}
	for i := range rows {
		if err := s.RecordCheck(&rows[i]); err != nil {
			t.Fatalf("RecordCheck: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"by run", Filter{RunID: "r1"}, 2},
		{"by sha", Filter{CommitSHA: "def"}, 1},
		{"by name", Filter{CheckName: "Style Check"}, 2},
		{"by status", Filter{Status: models.StatusFailure}, 1},
		{"by pr", Filter{PRNumber: 7}, 1},
		{"limit", Filter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListChecks(tt.filter)
			if err != nil {
				t.Fatalf("ListChecks: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	newest, _ := s.ListChecks(Filter{Limit: 1})
	if newest[0].RunID != "r2" {
		t.Errorf("newest check from run %s, want r2", newest[0].RunID)
	}
}

func TestRecordCheck_RequiresName(t *testing.T) {
	s := testStore(t)
	if err := s.RecordCheck(&models.Check{RunID: "r"}); err == nil {
		t.Error("expected error for empty check name")
	}
}

func TestLogs(t *testing.T) {
	s := testStore(t)
	for _, chunk := range []string{"one\n", "two\n"} {
		if err := s.AppendLog(models.JobLog{RunID: "r1", JobName: "Style Check", Direction: "out", Content: chunk}); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}
	s.AppendLog(models.JobLog{RunID: "r1", JobName: "Build", Direction: "out", Content: "other"})

	logs, err := s.Logs("r1", "Style Check")
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs) != 2 || logs[0].Content != "one\n" || logs[1].Content != "two\n" {
		t.Errorf("Logs = %+v", logs)
	}
}
