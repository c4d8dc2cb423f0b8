package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/runner"
	"github.com/zulandar/praktika/internal/secrets"
	"github.com/zulandar/praktika/internal/workflow"
	"github.com/zulandar/praktika/internal/workflows"
)

func newDockerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docker",
		Short: "Docker image commands",
	}

	cmd.AddCommand(newDockerBuildCmd())
	return cmd
}

func newDockerBuildCmd() *cobra.Command {
	var (
		configPath string
		wfName     string
		tag        string
		push       bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the docker images workflows run in",
		Long: `Builds every image the workflows declare (or only those of --workflow), in
dependency order, for all declared platforms. With --push the images are pushed
to Docker Hub as the dockerhub_username setting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDockerBuild(cmd, configPath, wfName, tag, push, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	cmd.Flags().StringVarP(&wfName, "workflow", "w", "", "only build images of this workflow")
	cmd.Flags().StringVarP(&tag, "tag", "t", "latest", "image tag")
	cmd.Flags().BoolVar(&push, "push", false, "push images after building")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print commands without running them")
	return cmd
}

func runDockerBuild(cmd *cobra.Command, configPath, wfName, tag string, push, dryRun bool) error {
	out := cmd.OutOrStdout()
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	images, err := collectDockers(wfName)
	if err != nil {
		return err
	}
	if len(images.Dockers) == 0 {
		fmt.Fprintln(out, "No docker images declared.")
		return nil
	}

	ctx, cancel := signalContext(out)
	defer cancel()

	cmds, err := runner.BuildImages(ctx, images, runner.BuildOpts{
		Executor:     newExecutor(cfg),
		DockerBinary: cfg.Runner.DockerBinary,
		WorkDir:      cfg.Runner.WorkDir,
		Tag:          tag,
		Push:         push,
		DryRun:       dryRun,
		Secrets:      secrets.New(cfg.Secrets.Dir),
		Settings:     cfg.Settings,
		Out:          out,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if !dryRun {
		fmt.Fprintf(out, "Built %d image(s).\n", len(images.Dockers))
	} else {
		fmt.Fprintf(out, "Dry run: %d command(s).\n", len(cmds))
	}
	return nil
}

// collectDockers merges the images of the selected workflows. Images shared by
// several workflows are built once.
func collectDockers(wfName string) (*workflow.Config, error) {
	selected := workflows.All()
	if wfName != "" {
		wf, err := workflows.Find(wfName)
		if err != nil {
			return nil, err
		}
		selected = []*workflow.Config{wf}
	}
	merged := &workflow.Config{Name: "dockers"}
	seen := make(map[string]bool)
	for _, wf := range selected {
		for _, d := range wf.Dockers {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			merged.Dockers = append(merged.Dockers, d)
		}
	}
	return merged, nil
}
