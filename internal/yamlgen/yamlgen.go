// Package yamlgen renders workflows as GitHub Actions workflow files. Each
// declared job becomes an Actions job that calls `praktika run` for itself.
package yamlgen

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/zulandar/praktika/internal/secrets"
	"github.com/zulandar/praktika/internal/settings"
	"github.com/zulandar/praktika/internal/workflow"
)

// Dir is where GitHub looks for workflow files, relative to the repo root.
const Dir = ".github/workflows"

// ConfigJob is the key of the job every generated workflow starts with. It
// validates the declarations before any real job is scheduled.
const ConfigJob = "config_workflow"

const header = "# generated by praktika from the Go workflow declarations; do not edit\n"

type file struct {
	Name        string       `yaml:"name"`
	On          trigger      `yaml:"on"`
	Concurrency *concurrency `yaml:"concurrency,omitempty"`
	Jobs        *yaml.Node   `yaml:"jobs"`
}

type trigger struct {
	PullRequest      *branches   `yaml:"pull_request,omitempty"`
	Push             *branches   `yaml:"push,omitempty"`
	Schedule         []cronEntry `yaml:"schedule,omitempty"`
	WorkflowDispatch *struct{}   `yaml:"workflow_dispatch,omitempty"`
}

type branches struct {
	Branches []string `yaml:"branches,omitempty"`
}

type cronEntry struct {
	Cron string `yaml:"cron"`
}

type concurrency struct {
	Group            string `yaml:"group"`
	CancelInProgress bool   `yaml:"cancel-in-progress"`
}

type job struct {
	Name           string            `yaml:"name"`
	RunsOn         []string          `yaml:"runs-on"`
	Needs          []string          `yaml:"needs,omitempty"`
	TimeoutMinutes int               `yaml:"timeout-minutes,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	Steps          []step            `yaml:"steps"`
}

type step struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
}

// FileName returns the workflow file name: "PullRequestCI" becomes
// "pull_request_ci.yml".
func FileName(workflowName string) string {
	return workflow.Normalize(snake(workflowName)) + ".yml"
}

// snake inserts underscores at lower-to-upper case boundaries and before the
// last capital of an acronym that starts a new word.
func snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Render returns the Actions workflow file for w.
func Render(w *workflow.Config, s settings.Settings) ([]byte, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	for _, j := range w.Jobs {
		if workflow.Normalize(j.Name) == ConfigJob {
			return nil, fmt.Errorf("yamlgen: job %q collides with the generated %s job", j.Name, ConfigJob)
		}
	}
	f := file{Name: w.Name, On: onTrigger(w)}
	if w.Event == workflow.EventPullRequest {
		f.Concurrency = &concurrency{
			Group:            "${{ github.workflow }}-${{ github.ref }}",
			CancelInProgress: true,
		}
	}

	jobs := &yaml.Node{Kind: yaml.MappingNode}
	env := secretEnv(w)
	add := func(key string, j job) error {
		var value yaml.Node
		if err := value.Encode(j); err != nil {
			return fmt.Errorf("yamlgen: encode job %s: %w", key, err)
		}
		jobs.Content = append(jobs.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&value,
		)
		return nil
	}

	config := job{
		Name:   "Config Workflow",
		RunsOn: s.CIConfigRunsOn,
		Steps: []step{
			checkout(),
			{Name: "Validate", Run: "praktika workflow validate " + shellQuote(w.Name)},
		},
	}
	if err := add(ConfigJob, config); err != nil {
		return nil, err
	}
	for i := range w.Jobs {
		j := &w.Jobs[i]
		needs := []string{ConfigJob}
		for _, r := range j.Requires {
			needs = append(needs, workflow.Normalize(r))
		}
		gj := job{
			Name:   j.Name,
			RunsOn: j.RunsOn,
			Needs:  needs,
			Env:    env,
			Steps: []step{
				checkout(),
				{Name: "Run", Run: runCommand(w, j)},
			},
		}
		if j.Timeout > 0 {
			gj.TimeoutMinutes = int(math.Ceil(j.Timeout.Minutes()))
		}
		if err := add(workflow.Normalize(j.Name), gj); err != nil {
			return nil, err
		}
	}
	f.Jobs = jobs

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("yamlgen: encode %s: %w", w.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yamlgen: encode %s: %w", w.Name, err)
	}
	return buf.Bytes(), nil
}

func onTrigger(w *workflow.Config) trigger {
	var t trigger
	switch w.Event {
	case workflow.EventPullRequest:
		t.PullRequest = &branches{Branches: w.BaseBranches}
	case workflow.EventPush:
		t.Push = &branches{Branches: w.Branches}
	case workflow.EventSchedule:
		for _, c := range w.CronSchedules {
			t.Schedule = append(t.Schedule, cronEntry{Cron: c})
		}
		t.WorkflowDispatch = &struct{}{}
	case workflow.EventDispatch:
		t.WorkflowDispatch = &struct{}{}
	}
	return t
}

func checkout() step {
	return step{
		Name: "Checkout",
		Uses: "actions/checkout@v4",
		With: map[string]string{"fetch-depth": "0"},
	}
}

// runCommand builds the `praktika run` invocation for one job, passing the
// commit and pull request the Actions run was triggered for.
func runCommand(w *workflow.Config, j *workflow.Job) string {
	args := []string{"praktika", "run",
		"--workflow", shellQuote(w.Name),
		"--job", shellQuote(j.Name),
	}
	if w.Event == workflow.EventPullRequest {
		args = append(args,
			"--sha", "${{ github.event.pull_request.head.sha }}",
			"--pr", "${{ github.event.pull_request.number }}",
			"--base-ref", "${{ github.base_ref }}",
			"--head-ref", "${{ github.head_ref }}",
		)
	} else {
		args = append(args, "--sha", "${{ github.sha }}", "--head-ref", "${{ github.ref_name }}")
	}
	return strings.Join(args, " ")
}

// secretEnv exposes GitHub-stored secrets to jobs under the variable names the
// secrets package reads. SSM secrets are resolved on the runner instead.
func secretEnv(w *workflow.Config) map[string]string {
	var env map[string]string
	for _, s := range w.Secrets {
		if s.Type != workflow.SecretGitHub {
			continue
		}
		if env == nil {
			env = make(map[string]string)
		}
		name := secrets.EnvVar(s.Name)
		env[name] = "${{ secrets." + name + " }}"
	}
	return env
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// WriteAll renders every workflow into root/.github/workflows and returns the
// written paths.
func WriteAll(root string, ws []*workflow.Config, s settings.Settings) ([]string, error) {
	dir := filepath.Join(root, filepath.FromSlash(Dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("yamlgen: %w", err)
	}
	var written []string
	for _, w := range ws {
		data, err := Render(w, s)
		if err != nil {
			return written, err
		}
		p := filepath.Join(dir, FileName(w.Name))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return written, fmt.Errorf("yamlgen: write %s: %w", p, err)
		}
		written = append(written, p)
	}
	return written, nil
}

// Stale returns the workflow files below root that are missing or differ from
// what Render produces.
func Stale(root string, ws []*workflow.Config, s settings.Settings) ([]string, error) {
	dir := filepath.Join(root, filepath.FromSlash(Dir))
	var stale []string
	for _, w := range ws {
		want, err := Render(w, s)
		if err != nil {
			return nil, err
		}
		p := filepath.Join(dir, FileName(w.Name))
		got, err := os.ReadFile(p)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("yamlgen: read %s: %w", p, err)
		}
		if !bytes.Equal(got, want) {
			stale = append(stale, p)
		}
	}
	return stale, nil
}
