package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zulandar/praktika/internal/artifacts"
	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/models"
	"github.com/zulandar/praktika/internal/report"
	"github.com/zulandar/praktika/internal/runner"
	"github.com/zulandar/praktika/internal/secrets"
	"github.com/zulandar/praktika/internal/workflows"
)

type runFlags struct {
	configPath string
	workflow   string
	opts       runner.RunOpts
	quiet      bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow, or one of its jobs, locally",
		Long: `Runs the workflow's jobs in dependency order and records every result in
the checks database. Job output is streamed to stdout unless --quiet is set.
Depending on the workflow's flags, an HTML report is published, the
"Mergeable Check" commit status is set and failures are announced in chat.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	cmd.Flags().StringVarP(&f.workflow, "workflow", "w", "", "workflow name (required)")
	cmd.Flags().StringVarP(&f.opts.Job, "job", "j", "", "run only this job")
	cmd.Flags().StringVar(&f.opts.CommitSHA, "sha", "", "commit SHA the run is for")
	cmd.Flags().IntVar(&f.opts.PRNumber, "pr", 0, "pull request number")
	cmd.Flags().StringVar(&f.opts.BaseRef, "base-ref", "", "pull request base branch")
	cmd.Flags().StringVar(&f.opts.HeadRef, "head-ref", "", "pull request head branch")
	cmd.Flags().BoolVar(&f.opts.NoCache, "no-cache", false, "ignore cached job results")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "do not stream job output")
	cmd.MarkFlagRequired("workflow")
	return cmd
}

func runRun(cmd *cobra.Command, f runFlags) error {
	out := cmd.OutOrStdout()

	wf, err := workflows.Find(f.workflow)
	if err != nil {
		return err
	}
	cfg, logger, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openChecks(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := secrets.New(cfg.Secrets.Dir)
	objects := artifactStore(cfg)
	r := &runner.Runner{
		Store:       store,
		Executor:    newExecutor(cfg),
		Cache:       artifacts.NewCache(objects),
		Secrets:     resolver,
		Reports:     &report.Publisher{Store: objects},
		Status:      statusPoster(ctx, cfg, resolver, logger),
		Notifier:    notifier(cfg, logger),
		Logger:      logger,
		WorkDir:     cfg.Runner.WorkDir,
		Parallelism: cfg.Runner.Parallelism,
		JobTimeout:  cfg.Runner.JobTimeout,
	}
	if !f.quiet {
		r.Echo = out
	}

	res, err := r.Run(ctx, wf, f.opts)
	if res != nil {
		printResult(out, res)
	}
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}
	if res.Status != models.StatusSuccess {
		return fmt.Errorf("workflow %s finished with status %s (failed: %v)", wf.Name, res.Status, res.Failed())
	}
	return nil
}

func printResult(out io.Writer, res *runner.Result) {
	fmt.Fprintf(out, "\nRun %s: %s %s\n", res.RunID, res.Workflow, res.Status)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSTATUS\tDURATION\tINFO")
	for _, j := range res.Jobs {
		status := j.Status
		if j.Cached {
			status += " (cached)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.Name, status, formatDuration(j.Duration), j.Info)
	}
	w.Flush()
	if res.ReportURL != "" {
		fmt.Fprintf(out, "Report: %s\n", res.ReportURL)
	}
}

// signalContext cancels on SIGINT or SIGTERM, printing which one arrived.
func signalContext(out io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
