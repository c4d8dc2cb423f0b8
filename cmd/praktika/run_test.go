package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/praktika/internal/config"
)

func TestRunCmd_RequiresWorkflow(t *testing.T) {
	_, err := runCLI(t, "", "run")
	if err == nil || !strings.Contains(err.Error(), "workflow") {
		t.Errorf("err = %v, want missing --workflow", err)
	}
}

func TestRunCmd_UnknownWorkflow(t *testing.T) {
	_, err := runCLI(t, "", "run", "-w", "Nope", "-c", writeTestConfig(t, ""))
	if err == nil || !strings.Contains(err.Error(), "workflow not found") {
		t.Errorf("err = %v, want workflow not found", err)
	}
}

func TestRunCmd_RecordsAndCaches(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	exec := &scriptedExecutor{output: "Hello\n"}
	useExecutor(t, exec)

	out, err := runCLI(t, "", "run", "-c", cfgPath, "-w", "PullRequestCI", "--sha", "abcdef1234567890", "--pr", "42")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Hello",
		"PullRequestCI success",
		"Style Check",
		"1.5s",
		"Report: http://localhost:8080/artifacts/clickhouse-builds/artifacts/reports/",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "", "checks", "list", "-c", cfgPath, "--pr", "42")
	if err != nil {
		t.Fatalf("checks list: %v", err)
	}
	if !strings.Contains(out, "Style Check") || !strings.Contains(out, "#42") || !strings.Contains(out, "abcdef12") {
		t.Errorf("unexpected checks output:\n%s", out)
	}

	// Same inputs: the cached result is reused.
	out, err = runCLI(t, "", "run", "-c", cfgPath, "-w", "PullRequestCI", "--sha", "abcdef1234567890", "--pr", "42")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(out, "success (cached)") {
		t.Errorf("expected cached result:\n%s", out)
	}
	if exec.calls != 1 {
		t.Errorf("executor called %d times, want 1", exec.calls)
	}

	// A new commit with different sources runs the job again.
	src := filepath.Join(filepath.Dir(cfgPath), "src", "main.cpp")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("int main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "", "run", "-c", cfgPath, "-w", "PullRequestCI", "--sha", "1234567", "-q"); err != nil {
		t.Fatalf("run after change: %v", err)
	}
	if exec.calls != 2 {
		t.Errorf("executor called %d times after a source change, want 2", exec.calls)
	}

	out, err = runCLI(t, "", "run", "-c", cfgPath, "-w", "PullRequestCI", "--no-cache", "-q")
	if err != nil {
		t.Fatalf("--no-cache run: %v", err)
	}
	if exec.calls != 3 {
		t.Errorf("executor called %d times, want 3", exec.calls)
	}
	if strings.Contains(out, "Hello") {
		t.Errorf("--quiet should not stream job output:\n%s", out)
	}
}

func TestRunCmd_FailureExitsNonZero(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	useExecutor(t, &scriptedExecutor{exit: 1})

	out, err := runCLI(t, "", "run", "-c", cfgPath, "-w", "PullRequestCI", "-j", "Style Check")
	if err == nil || !strings.Contains(err.Error(), "finished with status failure") {
		t.Fatalf("err = %v, want failure", err)
	}
	if !strings.Contains(out, "exit code 1") {
		t.Errorf("expected exit code in output:\n%s", out)
	}
}

func TestRunCmd_UnknownJob(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	useExecutor(t, &scriptedExecutor{})
	_, err := runCLI(t, "", "run", "-c", cfgPath, "-w", "PullRequestCI", "-j", "Nope")
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Errorf("err = %v, want job not found", err)
	}
}

func TestChecksLogsAndRuns(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	useExecutor(t, &scriptedExecutor{output: "style ok\n"})
	if _, err := runCLI(t, "", "run", "-c", cfgPath, "-w", "PullRequestCI", "-q"); err != nil {
		t.Fatalf("run: %v", err)
	}

	cfg, err := config.Load(cfgPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	store, err := openChecks(cfg)
	if err != nil {
		t.Fatal(err)
	}
	runs, err := store.ListRuns(1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %v, %v", runs, err)
	}
	runID := runs[0].ID

	out, err := runCLI(t, "", "checks", "logs", "-c", cfgPath, runID, "Style Check")
	if err != nil {
		t.Fatalf("checks logs: %v", err)
	}
	if out != "style ok\n" {
		t.Errorf("logs = %q", out)
	}

	if _, err := runCLI(t, "", "checks", "logs", "-c", cfgPath, runID, "Nope"); err == nil {
		t.Error("expected error for job without output")
	}

	out, err = runCLI(t, "", "checks", "runs", "-c", cfgPath)
	if err != nil {
		t.Fatalf("checks runs: %v", err)
	}
	if !strings.Contains(out, runID) || !strings.Contains(out, "success") {
		t.Errorf("unexpected runs output:\n%s", out)
	}
}

func TestChecksList_Empty(t *testing.T) {
	out, err := runCLI(t, "", "checks", "list", "-c", writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("checks list: %v", err)
	}
	if !strings.Contains(out, "No checks found.") {
		t.Errorf("unexpected output: %s", out)
	}
}
