package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zulandar/praktika/internal/artifacts"
	"github.com/zulandar/praktika/internal/checks"
	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/db"
	"github.com/zulandar/praktika/internal/ghstatus"
	"github.com/zulandar/praktika/internal/logging"
	"github.com/zulandar/praktika/internal/notify"
	"github.com/zulandar/praktika/internal/runner"
	"github.com/zulandar/praktika/internal/secrets"
)

// newExecutor builds the job executor. Tests replace it.
var newExecutor = func(cfg *config.Config) runner.Executor {
	return &runner.ShellExecutor{DockerBinary: cfg.Runner.DockerBinary}
}

// loadConfig loads the config file and builds the logger it describes.
func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openChecks connects to the checks database and migrates its tables.
func openChecks(cfg *config.Config) (*checks.Store, error) {
	gormDB, err := db.Connect(cfg.DB, cfg.Settings.CIDBName)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Settings.CIDBName, err)
	}
	if err := db.AutoMigrate(gormDB, cfg.Settings.CIDBTableName); err != nil {
		return nil, err
	}
	return checks.NewStore(gormDB, cfg.Settings.CIDBTableName), nil
}

func artifactStore(cfg *config.Config) *artifacts.Store {
	s := artifacts.NewStore(cfg.Artifacts.Root, cfg.Settings)
	s.BaseURL = strings.TrimRight(cfg.Report.BaseURL, "/")
	return s
}

// statusPoster returns the GitHub commit status poster, or nil when no
// repository or credentials are configured.
func statusPoster(ctx context.Context, cfg *config.Config, r secrets.Resolver, logger *zap.Logger) ghstatus.Poster {
	if cfg.Repo.Owner == "" {
		return nil
	}
	p, err := ghstatus.FromConfig(ctx, cfg, r, logger)
	if err != nil {
		logger.Warn("commit statuses disabled", zap.Error(err))
		return nil
	}
	return p
}

func notifier(cfg *config.Config, logger *zap.Logger) notify.Notifier {
	n, err := notify.FromConfig(cfg.Notify, logger)
	if err != nil {
		logger.Warn("notifications disabled", zap.Error(err))
		return nil
	}
	return n
}
