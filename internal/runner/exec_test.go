package runner

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestShellExecutor_Run(t *testing.T) {
	e := &ShellExecutor{}
	var out bytes.Buffer
	res, err := e.Run(context.Background(), ExecSpec{
		Name:    "echo",
		Command: `echo "hello $GREETING_NAME"`,
		Env:     map[string]string{"GREETING_NAME": "world"},
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if got := out.String(); got != "hello world\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestShellExecutor_ExitCode(t *testing.T) {
	e := &ShellExecutor{}
	var stderr bytes.Buffer
	res, err := e.Run(context.Background(), ExecSpec{
		Name:    "fail",
		Command: "echo oops >&2; exit 3",
		Stderr:  &stderr,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if stderr.String() != "oops\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestShellExecutor_WorkDirAndStdin(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	_, err := (&ShellExecutor{}).Run(context.Background(), ExecSpec{
		Name:    "pwd",
		Command: "pwd; cat",
		WorkDir: dir,
		Stdin:   strings.NewReader("from stdin"),
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if !strings.Contains(out.String(), resolved) && !strings.Contains(out.String(), dir) {
		t.Errorf("output %q does not mention %s", out.String(), dir)
	}
	if !strings.HasSuffix(out.String(), "from stdin") {
		t.Errorf("output %q, want stdin echoed", out.String())
	}
}

func TestShellExecutor_Timeout(t *testing.T) {
	start := time.Now()
	res, err := (&ShellExecutor{}).Run(context.Background(), ExecSpec{
		Name:    "sleepy",
		Command: "sleep 30",
		Timeout: 100 * time.Millisecond,
	})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("err = %v, want timeout", err)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("process was not stopped on timeout")
	}
}

func TestShellExecutor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := (&ShellExecutor{}).Run(ctx, ExecSpec{Name: "sleepy", Command: "sleep 30"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestShellExecutor_MissingBinary(t *testing.T) {
	_, err := (&ShellExecutor{}).Run(context.Background(), ExecSpec{
		Name: "missing",
		Args: []string{"/nonexistent/praktika-test-binary"},
	})
	if err == nil || !strings.Contains(err.Error(), "runner: start missing") {
		t.Errorf("err = %v, want start error", err)
	}
}

func TestShellExecutor_Argv(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		exec ShellExecutor
		spec ExecSpec
		want []string
	}{
		{
			name: "shell",
			spec: ExecSpec{Command: "make style"},
			want: []string{"sh", "-c", "make style"},
		},
		{
			name: "args",
			spec: ExecSpec{Command: "ignored", Args: []string{"docker", "version"}},
			want: []string{"docker", "version"},
		},
		{
			name: "docker",
			exec: ShellExecutor{DockerBinary: "podman"},
			spec: ExecSpec{
				Command:     "./ci/jobs/check_style.py",
				Image:       "clickhouse/style",
				DockerFlags: []string{"--network=host"},
				WorkDir:     dir,
				Env:         map[string]string{"TOKEN_B": "secret", "TOKEN_A": "secret"},
			},
			want: []string{
				"podman", "run", "--rm",
				"--volume", dir + ":/repo",
				"--workdir", "/repo",
				"--env", "TOKEN_A", "--env", "TOKEN_B",
				"--network=host",
				"clickhouse/style", "sh", "-c", "./ci/jobs/check_style.py",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.exec.argv(tt.spec)
			if err != nil {
				t.Fatalf("argv: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShellExecutor_ArgvRequiresCommand(t *testing.T) {
	if _, err := (&ShellExecutor{}).argv(ExecSpec{Name: "empty"}); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestShellExecutor_SecretsNotInArgv(t *testing.T) {
	argv, err := (&ShellExecutor{}).argv(ExecSpec{
		Command: "true",
		Image:   "clickhouse/style",
		Env:     map[string]string{"PASSWORD": "hunter2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.Join(argv, " "), "hunter2") {
		t.Errorf("argv %v leaks secret value", argv)
	}
}
