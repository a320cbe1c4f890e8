// Package cmd implements the askdb command line
package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/observability"
)

// Build metadata, set with -ldflags
var (
	Version = "dev"
	Commit  = "none"
)

type contextKey string

const configKey contextKey = "config"

// rootStringFlags are forwarded to config.LoadConfigWithOverrides when set
var rootStringFlags = []string{"config", "db-driver", "db-dsn", "store-path", "log-level"}

// NewApp builds the askdb command tree
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "askdb",
		Usage:   "Ask questions about a relational database in plain language",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Description: `askdb indexes the schema of a SQL database into a local vector store, then
turns natural-language questions into SQL with a completion model. Queries that
fail are repaired from the database error, and results are charted when their
shape allows it.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a JSON config file"},
			&cli.StringFlag{Name: "db-driver", Usage: "Target database driver: sqlite, duckdb, postgres, mysql"},
			&cli.StringFlag{Name: "db-dsn", Usage: "Target database file path or connection URL"},
			&cli.StringFlag{Name: "store-path", Usage: "Schema document store path"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
			&cli.BoolFlag{Name: "verbose", Usage: "Show attempts and timings"},
			&cli.BoolFlag{Name: "debug", Usage: "Debug logging and a Prometheus endpoint"},
		},
		Before: setup,
		After: func(context.Context, *cli.Command) error {
			return logging.GetLogger().Close()
		},
		Commands: []*cli.Command{
			AskCommand(),
			IndexCommand(),
			SeedCommand(),
			StatsCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the command line with args (including the program name)
func Execute(ctx context.Context, args []string) error {
	return NewApp().Run(ctx, args)
}

func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	overrides := make(map[string]interface{})
	for _, name := range rootStringFlags {
		if cmd.IsSet(name) {
			overrides[name] = cmd.String(name)
		}
	}
	for _, name := range []string{"verbose", "debug"} {
		if cmd.IsSet(name) {
			overrides[name] = cmd.Bool(name)
		}
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		logging.SetupFallbackLogger()
		return ctx, err
	}

	if cfg.Debug.Enabled {
		cfg.Logging.Level = "debug"
	}

	cfg.ExpandAllPaths()
	if err := cfg.EnsureDirectories(); err != nil {
		return ctx, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.WithError(err).Warn("Falling back to stderr logging")
	}

	if cfg.Debug.Enabled && cfg.Debug.MetricsPort > 0 {
		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Debug.MetricsPort)
		if _, err := observability.StartMetricsServer(ctx, addr, logging.GetLogger().Slog()); err != nil {
			logging.WithError(err).Warn("Metrics endpoint disabled")
		}
	}

	return context.WithValue(ctx, configKey, cfg), nil
}

// getConfigFromContext returns the configuration loaded by setup
func getConfigFromContext(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey).(*config.Config)
	return cfg
}
