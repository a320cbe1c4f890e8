// Package testutil provides common constants, builders and doubles for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second

	// TestDimensions is the embedding size used by test stores
	TestDimensions = 64
)

// Common test fixtures
const (
	// TestQuestion is a question the demo financial dataset can answer
	TestQuestion = "Show me the daily closing prices for Apple"

	// TestDescription is the description attached to indexed tables
	TestDescription = "Financial Data Table"

	// TickersDDL is the tickers table of the demo dataset
	TickersDDL = "CREATE TABLE tickers (\n  symbol VARCHAR(10) PRIMARY KEY,\n  name TEXT,\n  sector TEXT\n)"

	// PricesDDL is the stock_prices table of the demo dataset
	PricesDDL = "CREATE TABLE stock_prices (\n  symbol VARCHAR(10),\n  date VARCHAR(10),\n  close_price DOUBLE PRECISION,\n  volume INTEGER\n)"
)
