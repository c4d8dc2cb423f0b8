package workflows

import (
	"github.com/zulandar/praktika/internal/settings"
	"github.com/zulandar/praktika/internal/workflow"
)

// PullRequest checks every pull request against the base branch.
var PullRequest = &workflow.Config{
	Name:         "PullRequestCI",
	Event:        workflow.EventPullRequest,
	BaseBranches: []string{settings.BaseBranch},
	Jobs: []workflow.Job{
		{
			Name:        settings.JobNames.StyleCheck,
			RunsOn:      []string{settings.RunnerLabels.CIServices},
			Command:     "echo Hello",
			RunInDocker: settings.StyleImage,
			// Style rules apply to the whole tree; vendored submodules and
			// local CI state are not checked.
			Digest: workflow.Digest{
				IncludePaths: []string{"."},
				ExcludePaths: []string{"contrib", "build", ".praktika"},
			},
		},
	},
	Dockers:                settings.Dockers(),
	Secrets:                settings.Secrets(),
	EnableCache:            true,
	EnableHTML:             true,
	EnableMergeReadyStatus: true,
}
