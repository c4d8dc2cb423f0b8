// Package workflow models CI workflows: the jobs they run, the docker images those
// jobs run in and the secrets they need.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is the repository event that triggers a workflow.
type Event string

const (
	EventPullRequest Event = "pull_request"
	EventPush        Event = "push"
	EventSchedule    Event = "schedule"
	EventDispatch    Event = "dispatch"
)

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	switch e {
	case EventPullRequest, EventPush, EventSchedule, EventDispatch:
		return true
	}
	return false
}

// Docker platforms.
const (
	PlatformAMD64 = "linux/amd64"
	PlatformARM64 = "linux/arm64"
)

// SecretType says where a secret is stored.
type SecretType string

const (
	SecretGitHub       SecretType = "gh_secret"
	SecretAWSSSMVar    SecretType = "aws_ssm_var"
	SecretAWSSSMSecret SecretType = "aws_ssm_secret"
)

var (
	ErrJobNotFound    = errors.New("workflow: job not found")
	ErrDockerNotFound = errors.New("workflow: docker not found")
)

// Config is a named collection of jobs triggered by a repository event.
type Config struct {
	Name          string
	Event         Event
	BaseBranches  []string
	Branches      []string
	CronSchedules []string
	Jobs          []Job
	Dockers       []Docker
	Secrets       []Secret

	EnableCache            bool
	EnableHTML             bool
	EnableMergeReadyStatus bool
}

// Job is a single shell command run on a runner, optionally inside a docker image.
type Job struct {
	Name        string
	RunsOn      []string
	Command     string
	RunInDocker string
	Requires    []string
	Digest      Digest
	Timeout     time.Duration
}

// Digest selects the files whose content, together with the job declaration,
// decides whether a cached result can be reused.
type Digest struct {
	IncludePaths []string
	ExcludePaths []string
}

// Cacheable reports whether the job's result may be reused. A job that
// names no input files has nothing to tie a result to a source tree.
func (j *Job) Cacheable() bool {
	return len(j.Digest.IncludePaths) > 0
}

// Docker is an image built from a directory in the repository.
type Docker struct {
	Name      string
	Path      string
	Platforms []string
	DependsOn []string
}

// Secret is a reference to a credential resolved at run time.
type Secret struct {
	Name string
	Type SecretType
}

// Job returns the job with the given name.
func (c *Config) Job(name string) (*Job, error) {
	for i := range c.Jobs {
		if c.Jobs[i].Name == name {
			return &c.Jobs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrJobNotFound, name, c.Name)
}

// Docker returns the declared image with the given name.
func (c *Config) Docker(name string) (*Docker, error) {
	for i := range c.Dockers {
		if c.Dockers[i].Name == name {
			return &c.Dockers[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDockerNotFound, name)
}

// DockerImage splits a job's RunInDocker into the image name and extra
// `docker run` flags ("clickhouse/style+--privileged+--network=host").
func (j *Job) DockerImage() (image string, flags []string) {
	if j.RunInDocker == "" {
		return "", nil
	}
	parts := strings.Split(j.RunInDocker, "+")
	for _, f := range parts[1:] {
		if f = strings.TrimSpace(f); f != "" {
			flags = append(flags, f)
		}
	}
	return strings.TrimSpace(parts[0]), flags
}

// EffectiveTimeout returns the job timeout, or def when none is set.
func (j *Job) EffectiveTimeout(def time.Duration) time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return def
}

// SecretNames returns the names of all declared secrets.
func (c *Config) SecretNames() []string {
	names := make([]string, len(c.Secrets))
	for i, s := range c.Secrets {
		names[i] = s.Name
	}
	return names
}

// Normalize turns a display name into an identifier usable in paths and YAML
// keys: "Style Check" becomes "style_check".
func Normalize(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
