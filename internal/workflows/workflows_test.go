package workflows

import (
	"errors"
	"testing"

	"github.com/zulandar/praktika/internal/settings"
	"github.com/zulandar/praktika/internal/workflow"
)

func TestValidate_AllDeclaredWorkflows(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("declared workflows invalid: %v", err)
	}
}

func TestPullRequest_Declaration(t *testing.T) {
	w := PullRequest
	if w.Name != "PullRequestCI" {
		t.Errorf("Name = %q, want %q", w.Name, "PullRequestCI")
	}
	if w.Event != workflow.EventPullRequest {
		t.Errorf("Event = %q, want %q", w.Event, workflow.EventPullRequest)
	}
	if len(w.BaseBranches) != 1 || w.BaseBranches[0] != settings.BaseBranch {
		t.Errorf("BaseBranches = %v, want [%s]", w.BaseBranches, settings.BaseBranch)
	}
	if !w.EnableCache || !w.EnableHTML || !w.EnableMergeReadyStatus {
		t.Errorf("feature toggles = cache:%v html:%v merge-ready:%v, want all true",
			w.EnableCache, w.EnableHTML, w.EnableMergeReadyStatus)
	}
	if len(w.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(w.Jobs))
	}

	job := w.Jobs[0]
	if job.Name != "Style Check" {
		t.Errorf("Jobs[0].Name = %q, want %q", job.Name, "Style Check")
	}
	if len(job.RunsOn) != 1 || job.RunsOn[0] != "ci_services" {
		t.Errorf("Jobs[0].RunsOn = %v, want [ci_services]", job.RunsOn)
	}
	if job.Command != "echo Hello" {
		t.Errorf("Jobs[0].Command = %q, want %q", job.Command, "echo Hello")
	}
	if job.RunInDocker != "clickhouse/style" {
		t.Errorf("Jobs[0].RunInDocker = %q, want %q", job.RunInDocker, "clickhouse/style")
	}
	if !job.Cacheable() {
		t.Error("Style Check declares no digest paths, so its result can never be reused safely")
	}
	if _, err := w.Docker(job.RunInDocker); err != nil {
		t.Errorf("style image not declared in Dockers: %v", err)
	}
}

func TestPullRequest_Secrets(t *testing.T) {
	names := PullRequest.SecretNames()
	want := map[string]bool{
		settings.DockerhubSecret:   false,
		settings.SecretGHAppID:     false,
		settings.SecretGHAppPEMKey: false,
	}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		if !found {
			t.Errorf("secret %q not declared", n)
		}
	}
}

func TestFind(t *testing.T) {
	w, err := Find("PullRequestCI")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if w != PullRequest {
		t.Error("Find returned a different workflow")
	}

	_, err = Find("Nightly")
	if !errors.Is(err, ErrWorkflowNotFound) {
		t.Errorf("Find(Nightly) error = %v, want ErrWorkflowNotFound", err)
	}
}
