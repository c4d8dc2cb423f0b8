package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zulandar/praktika/internal/checks"
	"github.com/zulandar/praktika/internal/config"
)

func newChecksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "Query recorded runs and job results",
	}

	cmd.AddCommand(newChecksListCmd())
	cmd.AddCommand(newChecksRunsCmd())
	cmd.AddCommand(newChecksLogsCmd())
	return cmd
}

func newChecksListCmd() *cobra.Command {
	var (
		configPath string
		f          checks.Filter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecksList(cmd, configPath, f)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	cmd.Flags().StringVar(&f.RunID, "run", "", "filter by run id")
	cmd.Flags().StringVarP(&f.Workflow, "workflow", "w", "", "filter by workflow")
	cmd.Flags().StringVar(&f.CommitSHA, "sha", "", "filter by commit SHA")
	cmd.Flags().StringVar(&f.CheckName, "name", "", "filter by job name")
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status")
	cmd.Flags().IntVar(&f.PRNumber, "pr", 0, "filter by pull request number")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 50, "maximum rows")
	return cmd
}

func runChecksList(cmd *cobra.Command, configPath string, f checks.Filter) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openChecks(cfg)
	if err != nil {
		return err
	}

	rows, err := store.ListChecks(f)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No checks found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tWORKFLOW\tJOB\tSTATUS\tCACHED\tDURATION\tSHA\tPR")
	for _, c := range rows {
		pr := "-"
		if c.PullRequestNumber > 0 {
			pr = fmt.Sprintf("#%d", c.PullRequestNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(c.RunID), c.Workflow, c.CheckName, c.CheckStatus, yesNo(c.Cached),
			formatMillis(c.CheckDurationMs), shortSHA(c.CommitSHA), pr)
	}
	return w.Flush()
}

func newChecksRunsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List workflow runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := config.Load(configPath, nil)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := openChecks(cfg)
			if err != nil {
				return err
			}
			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWORKFLOW\tSTATUS\tSTARTED\tSHA\tREPORT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Workflow, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"),
					shortSHA(r.CommitSHA), r.ReportURL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs")
	return cmd
}

func newChecksLogsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "logs <run-id> <job>",
		Short: "Print the captured output of a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := config.Load(configPath, nil)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := openChecks(cfg)
			if err != nil {
				return err
			}
			logs, err := store.Logs(args[0], args[1])
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				return fmt.Errorf("no output recorded for %q in run %s", args[1], args[0])
			}
			for _, l := range logs {
				fmt.Fprint(out, l.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	return cmd
}
