// Package ghstatus publishes the merge-ready commit status for workflow runs.
package ghstatus

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/praktika/internal/models"
)

// Context is the commit status context branch protection rules require.
const Context = "Mergeable Check"

// Commit status states accepted by GitHub.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

// maxDescription is GitHub's limit for status descriptions.
const maxDescription = 140

// Status is one commit status update.
type Status struct {
	State       string
	Description string
	TargetURL   string
}

// Poster sets the merge-ready status on a commit.
type Poster interface {
	Post(ctx context.Context, sha string, st Status) error
}

// JobState is the final status of one job, as fed to MergeReadyState.
type JobState struct {
	Name   string
	Status string
	Cached bool
}

// MergeReadyState summarises job results: success only when every job
// succeeded (cached results count as success). Jobs still running keep the
// status pending.
func MergeReadyState(jobs []JobState, targetURL string) Status {
	if len(jobs) == 0 {
		return Status{State: StatePending, Description: "no jobs finished", TargetURL: targetURL}
	}
	var failed, running []string
	cached := 0
	for _, j := range jobs {
		switch {
		case j.Status == models.StatusSuccess:
			if j.Cached {
				cached++
			}
		case !models.IsFinal(j.Status):
			running = append(running, j.Name)
		default:
			failed = append(failed, j.Name)
		}
	}
	st := Status{TargetURL: targetURL}
	switch {
	case len(failed) > 0:
		st.State = StateFailure
		st.Description = "failed: " + strings.Join(failed, ", ")
	case len(running) > 0:
		st.State = StatePending
		st.Description = fmt.Sprintf("%d of %d jobs pending", len(running), len(jobs))
	default:
		st.State = StateSuccess
		st.Description = fmt.Sprintf("all %d jobs passed", len(jobs))
		if cached > 0 {
			st.Description += fmt.Sprintf(" (%d cached)", cached)
		}
	}
	st.Description = truncate(st.Description, maxDescription)
	return st
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// Nop is a Poster that drops every update. Used when no credentials are configured.
type Nop struct{}

func (Nop) Post(context.Context, string, Status) error { return nil }
