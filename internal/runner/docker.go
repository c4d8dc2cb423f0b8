package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/zulandar/praktika/internal/secrets"
	"github.com/zulandar/praktika/internal/settings"
	"github.com/zulandar/praktika/internal/workflow"
)

// BuildOpts configures BuildImages.
type BuildOpts struct {
	Executor     Executor
	DockerBinary string
	WorkDir      string
	Tag          string // default "latest"
	Push         bool
	DryRun       bool
	Secrets      secrets.Resolver
	Settings     settings.Settings
	Out          io.Writer
	Logger       *zap.Logger
}

// BuildImages builds w's docker images in dependency order, one multi-platform
// buildx invocation per image. With Push it first logs in to Docker Hub as
// the dockerhub_username setting, using the secret named by dockerhub_secret.
// It returns the commands it ran, or would run under DryRun.
func BuildImages(ctx context.Context, w *workflow.Config, opts BuildOpts) ([]string, error) {
	images, err := w.DockerOrder()
	if err != nil {
		return nil, err
	}
	if opts.Executor == nil && !opts.DryRun {
		return nil, fmt.Errorf("runner: executor is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	binary := opts.DockerBinary
	if binary == "" {
		binary = "docker"
	}
	tag := opts.Tag
	if tag == "" {
		tag = "latest"
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var ran []string
	run := func(name string, args []string, stdin string) error {
		ran = append(ran, strings.Join(args, " "))
		fmt.Fprintf(out, "+ %s\n", strings.Join(args, " "))
		if opts.DryRun {
			return nil
		}
		spec := ExecSpec{Name: name, Args: args, WorkDir: opts.WorkDir, Stdout: out, Stderr: out}
		if stdin != "" {
			spec.Stdin = strings.NewReader(stdin)
		}
		res, err := opts.Executor.Run(ctx, spec)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("runner: %s exited with code %d", name, res.ExitCode)
		}
		return nil
	}

	if opts.Push && len(images) > 0 {
		password := ""
		if !opts.DryRun {
			if opts.Secrets == nil {
				return nil, fmt.Errorf("runner: docker login: no secret resolver")
			}
			password, err = opts.Secrets.Resolve(opts.Settings.DockerhubSecret)
			if err != nil {
				return nil, fmt.Errorf("runner: docker login: %w", err)
			}
		}
		login := []string{binary, "login", "--username", opts.Settings.DockerhubUsername, "--password-stdin"}
		if err := run("docker login", login, password); err != nil {
			return ran, err
		}
	}

	for _, d := range images {
		args := []string{binary, "buildx", "build",
			"--platform", strings.Join(d.Platforms, ","),
			"--tag", d.Name + ":" + tag,
		}
		if opts.Push {
			args = append(args, "--push")
		}
		args = append(args, filepath.Clean(d.Path))
		opts.Logger.Info("building image", zap.String("image", d.Name), zap.Strings("platforms", d.Platforms))
		if err := run("build "+d.Name, args, ""); err != nil {
			return ran, fmt.Errorf("runner: build %s: %w", d.Name, err)
		}
	}
	return ran, nil
}
