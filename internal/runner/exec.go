package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"syscall"
	"time"
)

// containerWorkDir is where the repository is mounted inside job containers.
const containerWorkDir = "/repo"

// ExecSpec describes one process to run.
type ExecSpec struct {
	Name string
	// Command is a shell command run with sh -c. Ignored when Args is set.
	Command string
	// Args is an argv run directly, without a shell.
	Args []string
	// Image, when set, runs Command inside this docker image with WorkDir
	// mounted at /repo.
	Image       string
	DockerFlags []string
	WorkDir     string
	Env         map[string]string
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	Timeout     time.Duration
}

// ExitResult is the outcome of a process that ran to completion.
type ExitResult struct {
	ExitCode int
	Duration time.Duration
}

// Executor runs processes. A non-zero exit is reported through ExitResult;
// the error is reserved for processes that could not run or were stopped.
type Executor interface {
	Run(ctx context.Context, spec ExecSpec) (ExitResult, error)
}

// ShellExecutor runs commands on the local host, wrapping them in
// `docker run` when the spec names an image.
type ShellExecutor struct {
	DockerBinary string // default "docker"
}

// Run starts the process and waits for it. On timeout or cancellation the
// process gets SIGTERM, then is killed after 10 seconds.
func (e *ShellExecutor) Run(ctx context.Context, spec ExecSpec) (ExitResult, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}
	cmd, err := e.buildCommand(ctx, spec)
	if err != nil {
		return ExitResult{}, err
	}

	start := time.Now()
	err = cmd.Run()
	res := ExitResult{Duration: time.Since(start)}
	if err == nil {
		return res, nil
	}
	res.ExitCode = -1
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("runner: %s timed out after %s", spec.Name, spec.Timeout)
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("runner: %s: %w", spec.Name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("runner: start %s: %w", spec.Name, err)
}

// buildCommand constructs the exec.Cmd for a spec.
func (e *ShellExecutor) buildCommand(ctx context.Context, spec ExecSpec) (*exec.Cmd, error) {
	argv, err := e.argv(spec)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	cmd.Env = os.Environ()
	for _, k := range sortedKeys(spec.Env) {
		cmd.Env = append(cmd.Env, k+"="+spec.Env[k])
	}
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second
	return cmd, nil
}

// argv returns the full command line. Secrets are passed to containers by
// name only (`--env NAME`), so values never appear in the argument list.
func (e *ShellExecutor) argv(spec ExecSpec) ([]string, error) {
	if len(spec.Args) > 0 {
		return spec.Args, nil
	}
	if spec.Command == "" {
		return nil, fmt.Errorf("runner: %s: command is required", spec.Name)
	}
	if spec.Image == "" {
		return []string{"sh", "-c", spec.Command}, nil
	}

	workDir := spec.WorkDir
	if workDir == "" {
		workDir = "."
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("runner: %s: resolve workdir: %w", spec.Name, err)
	}
	binary := e.DockerBinary
	if binary == "" {
		binary = "docker"
	}
	args := []string{binary, "run", "--rm",
		"--volume", abs + ":" + containerWorkDir,
		"--workdir", containerWorkDir,
	}
	for _, k := range sortedKeys(spec.Env) {
		args = append(args, "--env", k)
	}
	args = append(args, spec.DockerFlags...)
	args = append(args, spec.Image, "sh", "-c", spec.Command)
	return args, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
