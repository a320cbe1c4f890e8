package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/indexer"
	"github.com/kyleking/askdb/internal/logging"
)

func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Index the target database schema for retrieval",
		Description: `Read the CREATE TABLE statements of the target database and store one
embedded document per table. Re-indexing replaces documents of tables that
still exist; --clear also drops documents of tables that were removed.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clear", Usage: "Remove all stored documents before indexing"},
		},
		Action: runIndex,
	}
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	out := writerOr(cmd.Root().Writer, os.Stdout)

	provider, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cmd.Bool("clear") {
		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(writerOr(cmd.Root().ErrWriter, os.Stderr)))
	s.Suffix = " Indexing schema..."
	s.Start()

	var report indexer.Report
	err = logging.LoggerMiddleware("index", func() error {
		var indexErr error
		report, indexErr = indexer.New(provider, store, cfg.Store.Description).Index(ctx)
		return indexErr
	})
	s.Stop()

	for _, table := range report.Indexed {
		fmt.Fprintf(out, "  %s %s\n", color.GreenString("+"), table)
	}

	for _, skip := range report.Skipped {
		fmt.Fprintf(out, "  %s %s: %q\n", color.YellowString("skipped"), skip.Reason, truncate(skip.Fragment, 60))
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s from %s (%s)\n", color.GreenString("Done:"), report, cfg.Database.DSN, provider.Dialect())

	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
