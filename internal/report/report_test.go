package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/praktika/internal/artifacts"
	"github.com/zulandar/praktika/internal/models"
	"github.com/zulandar/praktika/internal/settings"
)

func sampleRun() (models.WorkflowRun, []models.Check) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finish := start.Add(90 * time.Second)
	run := models.WorkflowRun{
		ID:                "run-1",
		Workflow:          "PullRequestCI",
		Event:             "pull_request",
		CommitSHA:         "0123456789abcdef0123456789abcdef01234567",
		PullRequestNumber: 42,
		BaseRef:           "master",
		HeadRef:           "feature",
		Status:            models.StatusFailure,
		StartedAt:         start,
		FinishedAt:        &finish,
	}
	// Newest first, as ListChecks returns them.
	rows := []models.Check{
		{RunID: "run-1", CheckName: "Fast test", CheckStatus: models.StatusSkipped, CheckStartTime: start.Add(60 * time.Second)},
		{RunID: "run-1", CheckName: "Style Check", CheckStatus: models.StatusFailure, CheckStartTime: start,
			CheckDurationMs: 61500, ExitCode: 1, Info: "3 files need formatting"},
	}
	return run, rows
}

func TestFromChecks(t *testing.T) {
	run, rows := sampleRun()
	r := FromChecks(run, rows)

	if r.RunID != "run-1" || r.Workflow != "PullRequestCI" || r.PRNumber != 42 {
		t.Errorf("report header = %+v", r)
	}
	if !r.FinishedAt.Equal(*run.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", r.FinishedAt, *run.FinishedAt)
	}
	if len(r.Jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(r.Jobs))
	}
	if r.Jobs[0].Name != "Style Check" {
		t.Errorf("first job = %q, want oldest first", r.Jobs[0].Name)
	}
	if r.Jobs[0].Duration != 61500*time.Millisecond {
		t.Errorf("Duration = %v", r.Jobs[0].Duration)
	}
	if r.Jobs[0].LogURL != "/api/runs/run-1/logs/Style%20Check" {
		t.Errorf("LogURL = %q", r.Jobs[0].LogURL)
	}
}

func TestFromChecks_Unfinished(t *testing.T) {
	run, _ := sampleRun()
	run.FinishedAt = nil
	r := FromChecks(run, nil)
	if !r.FinishedAt.IsZero() {
		t.Errorf("FinishedAt = %v, want zero", r.FinishedAt)
	}
	if len(r.Jobs) != 0 {
		t.Errorf("jobs = %d, want 0", len(r.Jobs))
	}
}

func TestRender(t *testing.T) {
	run, rows := sampleRun()
	var buf bytes.Buffer
	if err := Render(&buf, FromChecks(run, rows)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<title>PullRequestCI 01234567: failure</title>",
		"#42",
		"feature into master",
		"Style Check",
		`<td class="failure">failure</td>`,
		"3 files need formatting",
		"1m2s",
		"2026-03-01 12:00:00 UTC",
		"1m30s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRender_EscapesOutput(t *testing.T) {
	r := RunReport{RunID: "r", Workflow: "W", Jobs: []JobRow{{Name: "J", Info: "<script>alert(1)</script>"}}}
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("job info was not escaped")
	}
}

func TestRender_NoJobs(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, RunReport{RunID: "r", Workflow: "W"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "No jobs ran.") {
		t.Error("empty report should say no jobs ran")
	}
}

func TestPublisher(t *testing.T) {
	store := artifacts.NewStore(t.TempDir(), settings.Default())
	p := &Publisher{Store: store}

	if got, want := p.Key("run-1", "PullRequestCI"), "clickhouse-builds/artifacts/reports/run-1/pullrequestci.html"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}

	run, rows := sampleRun()
	url, err := p.Publish(FromChecks(run, rows))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if want := "https://clickhouse-builds.s3.amazonaws.com/artifacts/reports/run-1/pullrequestci.html"; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
	data, err := store.Get(p.Key("run-1", "PullRequestCI"))
	if err != nil {
		t.Fatalf("stored report: %v", err)
	}
	if !strings.Contains(string(data), "Style Check") {
		t.Error("stored report does not contain job")
	}
}

func TestPublisher_BaseURL(t *testing.T) {
	store := artifacts.NewStore(t.TempDir(), settings.Default())
	store.BaseURL = "http://ci.local:8080/"
	p := &Publisher{Store: store}
	url, err := p.Publish(RunReport{RunID: "run-2", Workflow: "PullRequestCI"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if want := "http://ci.local:8080/artifacts/clickhouse-builds/artifacts/reports/run-2/pullrequestci.html"; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}
