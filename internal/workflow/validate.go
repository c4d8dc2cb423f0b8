package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that the workflow is well formed: names are set and unique
// (job names also after Normalize, which keys YAML jobs and cache paths), every
// reference (requires, docker images, docker dependencies) resolves, and
// neither jobs nor dockers depend on each other in a cycle.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Name) == "" {
		add("name is required")
	}
	if !c.Event.Valid() {
		add("unknown event %q", c.Event)
	}
	switch c.Event {
	case EventPullRequest:
		if len(c.BaseBranches) == 0 {
			add("pull_request workflow needs at least one base branch")
		}
	case EventSchedule:
		if len(c.CronSchedules) == 0 {
			add("schedule workflow needs at least one cron schedule")
		}
	}
	for _, expr := range c.CronSchedules {
		if _, err := cronParser.Parse(expr); err != nil {
			add("cron schedule %q: %v", expr, err)
		}
	}

	dockers := make(map[string]bool, len(c.Dockers))
	for i, d := range c.Dockers {
		if d.Name == "" {
			add("dockers[%d].name is required", i)
			continue
		}
		if dockers[d.Name] {
			add("docker %q declared twice", d.Name)
		}
		dockers[d.Name] = true
		if d.Path == "" {
			add("docker %q: path is required", d.Name)
		}
	}
	for _, d := range c.Dockers {
		for _, dep := range d.DependsOn {
			if !dockers[dep] {
				add("docker %q depends on undeclared docker %q", d.Name, dep)
			}
		}
	}

	secrets := make(map[string]bool, len(c.Secrets))
	for i, s := range c.Secrets {
		if s.Name == "" {
			add("secrets[%d].name is required", i)
			continue
		}
		if secrets[s.Name] {
			add("secret %q declared twice", s.Name)
		}
		secrets[s.Name] = true
	}

	if len(c.Jobs) == 0 {
		add("at least one job is required")
	}
	jobs := make(map[string]bool, len(c.Jobs))
	keys := make(map[string]string, len(c.Jobs)) // normalized name -> job name
	for i, j := range c.Jobs {
		if strings.TrimSpace(j.Name) == "" {
			add("jobs[%d].name is required", i)
			continue
		}
		key := Normalize(j.Name)
		switch other, seen := keys[key]; {
		case jobs[j.Name]:
			add("job %q declared twice", j.Name)
		case key == "":
			add("job %q: name has no letters or digits", j.Name)
		case seen:
			add("jobs %q and %q share the identifier %q", other, j.Name, key)
		default:
			keys[key] = j.Name
		}
		jobs[j.Name] = true
		if len(j.RunsOn) == 0 {
			add("job %q: runs_on needs at least one runner label", j.Name)
		}
		if strings.TrimSpace(j.Command) == "" {
			add("job %q: command is required", j.Name)
		}
		if j.Timeout < 0 {
			add("job %q: negative timeout", j.Name)
		}
		if image, _ := j.DockerImage(); j.RunInDocker != "" && !dockers[image] {
			add("job %q runs in undeclared docker %q", j.Name, image)
		}
	}
	for _, j := range c.Jobs {
		for _, r := range j.Requires {
			switch {
			case r == j.Name:
				add("job %q requires itself", j.Name)
			case !jobs[r]:
				add("job %q requires unknown job %q", j.Name, r)
			}
		}
	}
	if len(errs) == 0 {
		if _, err := c.Order(); err != nil {
			errs = append(errs, err)
		}
		if _, err := c.DockerOrder(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("workflow %q: validation failed: %w", c.Name, err)
	}
	return nil
}
