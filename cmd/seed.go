package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/database"
	"github.com/kyleking/askdb/internal/logging"
)

func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create the demo financial dataset in the target database",
		Description: `Drop and recreate the tickers and stock_prices tables in the target database
and fill them with a random-walk daily price history. Pass --seed for a
reproducible history.`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 100, Usage: "Days of price history per ticker"},
			&cli.IntFlag{Name: "seed", Usage: "Random seed (0 picks one from the clock)"},
		},
		Action: runSeed,
	}
}

func runSeed(ctx context.Context, cmd *cli.Command) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	provider, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	opts := database.SeedOptions{Days: cmd.Int("days")}
	if seed := cmd.Int("seed"); seed != 0 {
		opts.Source = rand.NewPCG(uint64(seed), uint64(seed)>>1)
	}

	var report database.SeedReport
	if err := logging.LoggerMiddleware("seed", func() error {
		var seedErr error
		report, seedErr = database.Seed(ctx, provider, opts)
		return seedErr
	}); err != nil {
		return err
	}

	out := writerOr(cmd.Root().Writer, os.Stdout)
	fmt.Fprintf(out, "%s %s into %s (%s)\n",
		color.GreenString("Seeded"), report, cfg.Database.DSN, provider.Dialect())
	fmt.Fprintln(out, "Run 'askdb index' to make the new tables retrievable.")

	return nil
}
