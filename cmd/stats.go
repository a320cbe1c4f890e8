package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/database"
	"github.com/kyleking/askdb/internal/storage"
)

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display store statistics and service reachability",
		Description: `Show the number of indexed schema documents, when the store was last updated and its size, then check that the target database and the completion service answer.`,
		Action:      runStats,
	}
}

func runStats(ctx context.Context, cmd *cli.Command) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	out := writerOr(cmd.Root().Writer, os.Stdout)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := printStoreStats(ctx, out, store); err != nil {
		return err
	}

	printReachability(ctx, out, cfg)

	return nil
}

func printStoreStats(ctx context.Context, out io.Writer, store storage.Store) error {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	fmt.Fprintf(out, "Schema Store\n")
	fmt.Fprintf(out, "============\n\n")

	fmt.Fprintf(out, "Indexed Tables: %d\n", stats.TotalDocuments)
	fmt.Fprintf(out, "Embedding Model: %s\n", stats.EmbeddingModel)
	fmt.Fprintf(out, "Store Size: %.2f MB\n", stats.DatabaseSizeMB)

	if !stats.LastUpdated.IsZero() {
		fmt.Fprintf(out, "Last Indexed: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintf(out, "Last Indexed: Never\n")
	}

	return nil
}

func printReachability(ctx context.Context, out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "\nServices\n")
	fmt.Fprintf(out, "========\n\n")

	provider, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(out, "Database (%s): %s\n", cfg.Database.Driver, status(func() error { return err }))
	} else {
		defer provider.Close()
		fmt.Fprintf(out, "Database (%s): %s\n", cfg.Database.Driver, databaseStatus(ctx, provider))
	}

	fmt.Fprintf(out, "Completion (%s/%s): %s\n", cfg.LLM.Provider, cfg.LLM.Model, status(func() error {
		client, err := newCompleter(cfg)
		if err != nil {
			return err
		}
		return client.Ping(ctx)
	}))
}

func databaseStatus(ctx context.Context, provider database.Provider) string {
	return status(func() error { return provider.Ping(ctx) })
}

func status(check func() error) string {
	if err := check(); err != nil {
		return color.RedString("unreachable (%v)", err)
	}
	return color.GreenString("ok")
}
