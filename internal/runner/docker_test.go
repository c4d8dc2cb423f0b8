package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zulandar/praktika/internal/secrets"
	"github.com/zulandar/praktika/internal/settings"
	"github.com/zulandar/praktika/internal/workflow"
)

func dockerWorkflow() *workflow.Config {
	return &workflow.Config{
		Name: "Images",
		Dockers: []workflow.Docker{
			{Name: "clickhouse/test-util", Path: "./ci/docker/test-util/", Platforms: []string{workflow.PlatformAMD64}, DependsOn: []string{"clickhouse/test-base"}},
			{Name: "clickhouse/test-base", Path: "./ci/docker/test-base", Platforms: []string{workflow.PlatformAMD64, workflow.PlatformARM64}},
		},
	}
}

func TestBuildImages_DryRun(t *testing.T) {
	var out bytes.Buffer
	cmds, err := BuildImages(context.Background(), dockerWorkflow(), BuildOpts{
		DryRun:   true,
		Tag:      "abc123",
		Push:     true,
		Settings: settings.Default(),
		Out:      &out,
	})
	if err != nil {
		t.Fatalf("BuildImages: %v", err)
	}
	want := []string{
		"docker login --username robotclickhouse --password-stdin",
		"docker buildx build --platform linux/amd64,linux/arm64 --tag clickhouse/test-base:abc123 --push ci/docker/test-base",
		"docker buildx build --platform linux/amd64 --tag clickhouse/test-util:abc123 --push ci/docker/test-util",
	}
	if diff := cmp.Diff(want, cmds); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(out.String(), "+ docker login") {
		t.Errorf("output = %q", out.String())
	}
}

type stdinRecorder struct {
	specs  []ExecSpec
	stdins []string
	exit   map[string]int
}

func (r *stdinRecorder) Run(ctx context.Context, spec ExecSpec) (ExitResult, error) {
	r.specs = append(r.specs, spec)
	in := ""
	if spec.Stdin != nil {
		b, _ := io.ReadAll(spec.Stdin)
		in = string(b)
	}
	r.stdins = append(r.stdins, in)
	return ExitResult{ExitCode: r.exit[spec.Name]}, nil
}

func TestBuildImages_PushLogsIn(t *testing.T) {
	rec := &stdinRecorder{}
	resolver := secrets.EnvResolver{Lookup: func(k string) (string, bool) {
		return "hunter2", k == "DOCKERHUB_ROBOT_PASSWORD"
	}}
	_, err := BuildImages(context.Background(), dockerWorkflow(), BuildOpts{
		Executor:     rec,
		DockerBinary: "podman",
		Push:         true,
		Secrets:      resolver,
		Settings:     settings.Default(),
	})
	if err != nil {
		t.Fatalf("BuildImages: %v", err)
	}
	if len(rec.specs) != 3 {
		t.Fatalf("ran %d commands, want 3", len(rec.specs))
	}
	if rec.specs[0].Args[0] != "podman" || rec.specs[0].Args[1] != "login" {
		t.Errorf("first command = %v, want login", rec.specs[0].Args)
	}
	if rec.stdins[0] != "hunter2" {
		t.Errorf("login stdin = %q", rec.stdins[0])
	}
	if strings.Contains(strings.Join(rec.specs[0].Args, " "), "hunter2") {
		t.Error("password leaked into argv")
	}
	if got := rec.specs[1].Args[len(rec.specs[1].Args)-1]; got != "ci/docker/test-base" {
		t.Errorf("second build context = %q, want dependency first", got)
	}
}

func TestBuildImages_MissingSecret(t *testing.T) {
	resolver := secrets.EnvResolver{Lookup: func(string) (string, bool) { return "", false }}
	_, err := BuildImages(context.Background(), dockerWorkflow(), BuildOpts{
		Executor: &stdinRecorder{},
		Push:     true,
		Secrets:  resolver,
		Settings: settings.Default(),
	})
	if !errors.Is(err, secrets.ErrSecretNotFound) {
		t.Errorf("err = %v, want ErrSecretNotFound", err)
	}
}

func TestBuildImages_BuildFailure(t *testing.T) {
	rec := &stdinRecorder{exit: map[string]int{"build clickhouse/test-base": 1}}
	cmds, err := BuildImages(context.Background(), dockerWorkflow(), BuildOpts{
		Executor: rec,
		Settings: settings.Default(),
	})
	if err == nil || !strings.Contains(err.Error(), "clickhouse/test-base") {
		t.Fatalf("err = %v, want build failure", err)
	}
	if len(cmds) != 1 {
		t.Errorf("commands = %v, want to stop after the failed build", cmds)
	}
}

func TestBuildImages_RequiresExecutor(t *testing.T) {
	if _, err := BuildImages(context.Background(), dockerWorkflow(), BuildOpts{}); err == nil {
		t.Error("expected error without executor")
	}
}
