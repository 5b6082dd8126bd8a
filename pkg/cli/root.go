// Package cli implements the bdp command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bdp/internal/config"
	"bdp/internal/engine"
	"bdp/internal/service/materialize"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var flags configFlags

	rootCmd := &cobra.Command{
		Use:           "bdp",
		Short:         "Asset-based data pipeline orchestrator",
		Long:          "bdp discovers SQL and script assets, orders them by their table dependencies, and materializes them into a DuckDB database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.db, "db", "", "Path to the DuckDB database file")
	rootCmd.PersistentFlags().StringVar(&flags.assetsRoot, "assets-root", "", "Directory to scan for asset files")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&flags.concurrency, "concurrency", 0, "Maximum assets materialized in parallel")

	rootCmd.AddCommand(newMaterializeCmd(&flags))
	rootCmd.AddCommand(newCheckCmd(&flags))
	rootCmd.AddCommand(newListCmd(&flags))
	rootCmd.AddCommand(newDocsCmd(&flags))
	rootCmd.AddCommand(newScheduleCmd(&flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// configFlags holds the persistent flag values shared by every subcommand.
type configFlags struct {
	db          string
	assetsRoot  string
	logLevel    string
	concurrency int
}

// resolveConfig loads configuration with flag > environment > project file >
// default precedence. Only flags the user actually set override the rest.
func resolveConfig(cmd *cobra.Command, flags *configFlags) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("db") {
		cfg.DBPath = flags.db
	}
	if cmd.Flags().Changed("assets-root") {
		cfg.AssetsRoot = flags.assetsRoot
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = flags.concurrency
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.AssetsRoot == "" {
		return nil, fmt.Errorf("no assets directory found: set --assets-root, BDP_ASSETS_ROOT, or create ./%s", config.DefaultAssetsDir)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(handler)
}

// openService opens the database and wires the materialization service.
// The caller closes the returned engine.
func openService(cmd *cobra.Command, flags *configFlags) (*materialize.Service, *engine.Engine, *slog.Logger, error) {
	cfg, err := resolveConfig(cmd, flags)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)

	eng, err := engine.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return materialize.NewService(cfg.AssetsRoot, eng, logger, cfg.Concurrency), eng, logger, nil
}
