package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build metadata, overridden with -ldflags -X.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "praktika",
		Short: "CI workflows declared in Go",
		Long: `Praktika validates the repository's CI workflow declarations, renders them
as GitHub Actions workflows, runs their jobs and records the results.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newWorkflowCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDockerCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newChecksCmd())
	cmd.AddCommand(newReportCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "praktika %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// execute runs cmd and maps its error to a process exit code.
func execute(cmd *cobra.Command) int {
	if cmd.Execute() != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
