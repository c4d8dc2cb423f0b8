package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/workflow"
	"github.com/zulandar/praktika/internal/workflows"
	"github.com/zulandar/praktika/internal/yamlgen"
)

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect, validate and render workflow declarations",
	}

	cmd.AddCommand(newWorkflowListCmd())
	cmd.AddCommand(newWorkflowShowCmd())
	cmd.AddCommand(newWorkflowValidateCmd())
	cmd.AddCommand(newWorkflowYAMLCmd())
	cmd.AddCommand(newWorkflowNextCmd())
	return cmd
}

func newWorkflowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEVENT\tJOBS\tCACHE\tHTML\tMERGE STATUS")
			for _, wf := range workflows.All() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					wf.Name, wf.Event, len(wf.Jobs),
					yesNo(wf.EnableCache), yesNo(wf.EnableHTML), yesNo(wf.EnableMergeReadyStatus))
			}
			return w.Flush()
		},
	}
}

func newWorkflowShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <workflow>",
		Short: "Show a workflow's jobs, images and secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := workflows.Find(args[0])
			if err != nil {
				return err
			}
			printWorkflow(cmd.OutOrStdout(), wf)
			return nil
		},
	}
}

func printWorkflow(out io.Writer, wf *workflow.Config) {
	fmt.Fprintf(out, "Workflow: %s\n", wf.Name)
	fmt.Fprintf(out, "Event:    %s\n", wf.Event)
	switch {
	case len(wf.BaseBranches) > 0:
		fmt.Fprintf(out, "Base:     %s\n", strings.Join(wf.BaseBranches, ", "))
	case len(wf.Branches) > 0:
		fmt.Fprintf(out, "Branches: %s\n", strings.Join(wf.Branches, ", "))
	}
	if len(wf.CronSchedules) > 0 {
		fmt.Fprintf(out, "Schedule: %s\n", strings.Join(wf.CronSchedules, ", "))
	}
	fmt.Fprintf(out, "Cache: %s  HTML: %s  Merge status: %s\n",
		yesNo(wf.EnableCache), yesNo(wf.EnableHTML), yesNo(wf.EnableMergeReadyStatus))

	fmt.Fprintf(out, "\nJobs (%d):\n", len(wf.Jobs))
	for _, j := range wf.Jobs {
		fmt.Fprintf(out, "  %s\n", j.Name)
		fmt.Fprintf(out, "    runs-on:  %s\n", strings.Join(j.RunsOn, ", "))
		fmt.Fprintf(out, "    command:  %s\n", j.Command)
		if j.RunInDocker != "" {
			fmt.Fprintf(out, "    docker:   %s\n", j.RunInDocker)
		}
		if len(j.Requires) > 0 {
			fmt.Fprintf(out, "    requires: %s\n", strings.Join(j.Requires, ", "))
		}
		if j.Timeout > 0 {
			fmt.Fprintf(out, "    timeout:  %s\n", j.Timeout)
		}
	}

	if len(wf.Dockers) > 0 {
		fmt.Fprintf(out, "\nDockers (%d):\n", len(wf.Dockers))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, d := range wf.Dockers {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", d.Name, d.Path, strings.Join(d.Platforms, ","))
		}
		w.Flush()
	}
	if len(wf.Secrets) > 0 {
		fmt.Fprintf(out, "\nSecrets (%d):\n", len(wf.Secrets))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, s := range wf.Secrets {
			fmt.Fprintf(w, "  %s\t%s\n", s.Name, s.Type)
		}
		w.Flush()
	}
}

func newWorkflowValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [workflow...]",
		Short: "Validate workflow declarations",
		Long:  "Validates the named workflows, or every declared workflow when none is named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflowValidate(cmd, args)
		},
	}
}

func runWorkflowValidate(cmd *cobra.Command, names []string) error {
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		if err := workflows.Validate(); err != nil {
			return err
		}
		for _, wf := range workflows.All() {
			fmt.Fprintf(out, "%s: ok\n", wf.Name)
		}
		return nil
	}
	var errs []error
	for _, name := range names {
		wf, err := workflows.Find(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := wf.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", wf.Name)
	}
	return errors.Join(errs...)
}

func newWorkflowYAMLCmd() *cobra.Command {
	var (
		configPath string
		root       string
		check      bool
		printName  string
	)

	cmd := &cobra.Command{
		Use:   "yaml",
		Short: "Generate GitHub Actions workflow files",
		Long: `Renders every declared workflow to .github/workflows/<name>.yml below --root.
With --check, nothing is written; the command fails if any file is out of date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflowYAML(cmd, configPath, root, check, printName)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	cmd.Flags().StringVar(&root, "root", ".", "repository root")
	cmd.Flags().BoolVar(&check, "check", false, "fail if generated files are out of date")
	cmd.Flags().StringVar(&printName, "print", "", "print one workflow to stdout instead of writing files")
	return cmd
}

func runWorkflowYAML(cmd *cobra.Command, configPath, root string, check bool, printName string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if printName != "" {
		wf, err := workflows.Find(printName)
		if err != nil {
			return err
		}
		data, err := yamlgen.Render(wf, cfg.Settings)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if check {
		stale, err := yamlgen.Stale(root, workflows.All(), cfg.Settings)
		if err != nil {
			return err
		}
		if len(stale) > 0 {
			for _, p := range stale {
				fmt.Fprintf(out, "out of date: %s\n", p)
			}
			return fmt.Errorf("%d workflow file(s) out of date; run `praktika workflow yaml`", len(stale))
		}
		fmt.Fprintln(out, "Workflow files are up to date.")
		return nil
	}

	written, err := yamlgen.WriteAll(root, workflows.All(), cfg.Settings)
	for _, p := range written {
		fmt.Fprintf(out, "wrote %s\n", p)
	}
	return err
}

func newWorkflowNextCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "next <workflow>",
		Short: "Show the next scheduled runs of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := workflows.Find(args[0])
			if err != nil {
				return err
			}
			runs, err := wf.NextRuns(time.Now().UTC(), count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "%s is not scheduled (event %s).\n", wf.Name, wf.Event)
				return nil
			}
			for _, t := range runs {
				fmt.Fprintln(out, t.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of runs to show")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
