package database

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
)

// Ticker is one listed company of the demo dataset
type Ticker struct {
	Symbol string
	Sector string
	Name   string
}

// DemoTickers are the companies written by Seed
var DemoTickers = []Ticker{
	{"AAPL", "Tech", "Apple"},
	{"MSFT", "Tech", "Microsoft"},
	{"GOOGL", "Tech", "Google"},
	{"XOM", "Energy", "Exxon"},
	{"CVX", "Energy", "Chevron"},
	{"JPM", "Finance", "JP Morgan"},
	{"GS", "Finance", "Goldman Sachs"},
}

// SeedOptions controls the generated price history
type SeedOptions struct {
	Days   int
	End    time.Time
	Source rand.Source
}

// SeedReport summarizes a Seed run
type SeedReport struct {
	Tickers int
	Prices  int
}

// Seed (re)creates the demo financial tables: tickers and a daily random-walk
// price history per symbol ending on opts.End.
func Seed(ctx context.Context, p *SQLProvider, opts SeedOptions) (SeedReport, error) {
	if opts.Days <= 0 {
		opts.Days = 100
	}

	if opts.End.IsZero() {
		opts.End = time.Now()
	}

	if opts.Source == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Source = rand.NewPCG(seed, seed>>1)
	}

	rng := rand.New(opts.Source)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return SeedReport{}, errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin seed transaction")
	}

	defer func() { _ = tx.Rollback() }()

	statements := []string{
		"DROP TABLE IF EXISTS stock_prices",
		"DROP TABLE IF EXISTS tickers",
		`CREATE TABLE tickers (
    symbol VARCHAR(10) PRIMARY KEY,
    sector VARCHAR(50),
    name VARCHAR(100)
)`,
		`CREATE TABLE stock_prices (
    symbol VARCHAR(10),
    date VARCHAR(10),
    close_price DOUBLE PRECISION,
    volume INTEGER
)`,
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return SeedReport{}, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to prepare demo schema")
		}
	}

	insertTicker := p.dialect.rebind("INSERT INTO tickers (symbol, sector, name) VALUES (?, ?, ?)")
	for _, t := range DemoTickers {
		if _, err := tx.ExecContext(ctx, insertTicker, t.Symbol, t.Sector, t.Name); err != nil {
			return SeedReport{}, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to insert ticker %s", t.Symbol)
		}
	}

	report := SeedReport{Tickers: len(DemoTickers)}
	insertPrice := p.dialect.rebind(
		"INSERT INTO stock_prices (symbol, date, close_price, volume) VALUES (?, ?, ?, ?)")
	start := opts.End.AddDate(0, 0, -(opts.Days - 1))

	for _, t := range DemoTickers {
		price := 100.0

		for day := range opts.Days {
			date := start.AddDate(0, 0, day).Format("2006-01-02")
			price += rng.NormFloat64() * 2
			volume := 1000 + rng.IntN(999001)

			if _, err := tx.ExecContext(ctx, insertPrice, t.Symbol, date, roundCents(price), volume); err != nil {
				return SeedReport{}, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to insert price for %s", t.Symbol)
			}

			report.Prices++
		}
	}

	if err := tx.Commit(); err != nil {
		return SeedReport{}, errors.Wrap(err, errors.ErrTypeDatabase, "failed to commit demo data")
	}

	logging.WithFields(map[string]interface{}{
		"tickers": report.Tickers,
		"prices":  report.Prices,
	}).Info("Seeded demo financial database")

	return report, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// String formats the report for display
func (r SeedReport) String() string {
	return fmt.Sprintf("%d tickers, %d price rows", r.Tickers, r.Prices)
}
