package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Checks database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the checks database",
		Long:  "Creates the CI database (mysql) or file (sqlite) and migrates the runs, checks and job log tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dbName := cfg.Settings.CIDBName

	if cfg.DB.Driver == "mysql" {
		adminDB, err := db.ConnectAdmin(cfg.DB)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", cfg.DB.Host, cfg.DB.Port)
		if err := db.CreateDatabase(adminDB, dbName); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", dbName)
	}

	gormDB, err := db.Connect(cfg.DB, dbName)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", dbName, err)
	}
	if err := db.AutoMigrate(gormDB, cfg.Settings.CIDBTableName); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables (checks table: %s)\n", len(db.AllModels())+1, cfg.Settings.CIDBTableName)

	fmt.Fprintln(out, "\nChecks database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-create the checks tables",
		Long: `Drops every praktika table, including the checks table, and migrates them again.
All recorded runs, check results and job logs are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to praktika config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	target := cfg.Settings.CIDBName
	if cfg.DB.Driver == "sqlite" {
		target = cfg.DB.Path
	}

	if !skipConfirm {
		if !confirmReset(cmd, target) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	gormDB, err := db.Connect(cfg.DB, cfg.Settings.CIDBName)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", target, err)
	}
	if err := db.DropTables(gormDB, cfg.Settings.CIDBTableName); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped tables in %s\n", target)

	if err := db.AutoMigrate(gormDB, cfg.Settings.CIDBTableName); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels())+1)

	fmt.Fprintln(out, "\nChecks database reset successfully.")
	return nil
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: every recorded run, check and job log in %q will be dropped.\n\n", target)
	fmt.Fprint(out, "Type \"yes\" to continue: ")

	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(answer) == "yes"
}
