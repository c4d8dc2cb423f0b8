package main

import (
	"github.com/spf13/cobra"

	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run reports",
	}

	cmd.AddCommand(newReportServeCmd())
	return cmd
}

func newReportServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run reports, check results and artifacts over HTTP",
		Long:  "Launches a read-only web server over the checks database and the artifact store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config, 8080)")
	return cmd
}

func runReportServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openChecks(cfg)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Report.Port
	}

	ctx, cancel := signalContext(cmd.OutOrStdout())
	defer cancel()

	return report.Start(ctx, report.StartOpts{
		Checks:    store,
		Artifacts: artifactStore(cfg),
		Port:      port,
		Out:       cmd.OutOrStdout(),
		Logger:    logger,
		RateLimit: cfg.Report.RateLimitRPS,
		Burst:     cfg.Report.RateLimitBurst,
	})
}
