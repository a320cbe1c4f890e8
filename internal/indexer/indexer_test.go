package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/testutil"
)

func TestSplitDDL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		tables  []string
		skipped int
	}{
		{
			name:   "two tables",
			raw:    testutil.TickersDDL + "\n\n" + testutil.PricesDDL,
			tables: []string{"tickers", "stock_prices"},
		},
		{
			name:   "lowercase keyword and extra whitespace",
			raw:    "create   table prices (id INTEGER)",
			tables: []string{"prices"},
		},
		{
			name:   "keyword split across lines",
			raw:    "CREATE\n\tTABLE prices (id INTEGER)",
			tables: []string{"prices"},
		},
		{
			name:   "quoted identifiers",
			raw:    "CREATE TABLE \"Tickers\" (a INT);\nCREATE TABLE `prices` (b INT);\nCREATE TABLE [volumes] (c INT)",
			tables: []string{"Tickers", "prices", "volumes"},
		},
		{
			name:   "quoted identifiers with spaces",
			raw:    "CREATE TABLE \"stock prices\" (id INTEGER);\nCREATE TABLE `order items`(id INT);\nCREATE TABLE [option prices] (id INT)",
			tables: []string{"stock prices", "order items", "option prices"},
		},
		{
			name:   "quoted schema and table with dots and spaces",
			raw:    "CREATE TABLE IF NOT EXISTS \"my schema\".\"v1.prices\" (id INTEGER)",
			tables: []string{"v1.prices"},
		},
		{
			name:   "if not exists and schema qualifier",
			raw:    "CREATE TABLE IF NOT EXISTS main.prices (id INTEGER)",
			tables: []string{"prices"},
		},
		{
			name:   "no space before column list",
			raw:    "CREATE TABLE prices(id INTEGER)",
			tables: []string{"prices"},
		},
		{
			name:    "missing column list is skipped",
			raw:     "CREATE TABLE broken\n\n" + testutil.TickersDDL,
			tables:  []string{"tickers"},
			skipped: 1,
		},
		{
			name:    "missing name is skipped",
			raw:     "CREATE TABLE (id INTEGER)",
			skipped: 1,
		},
		{
			name:    "leading text is skipped",
			raw:     "PRAGMA foreign_keys=ON;\n" + testutil.TickersDDL,
			tables:  []string{"tickers"},
			skipped: 1,
		},
		{
			name: "empty dump",
			raw:  "  \n ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tables []string
			skipped := 0
			for _, r := range SplitDDL(tt.raw) {
				if r.Skip != nil {
					assert.Nil(t, r.Document)
					assert.NotEmpty(t, r.Skip.Reason)
					skipped++
					continue
				}
				require.NotNil(t, r.Document)
				tables = append(tables, r.Document.TableName)
			}

			assert.Equal(t, tt.tables, tables)
			assert.Equal(t, tt.skipped, skipped)
		})
	}
}

func TestSplitDDLKeepsFullDefinition(t *testing.T) {
	results := SplitDDL(testutil.TickersDDL + "\n\n" + testutil.PricesDDL)
	require.Len(t, results, 2)

	assert.Equal(t, testutil.TickersDDL, results[0].Document.DDL)
	assert.Equal(t, testutil.PricesDDL, results[1].Document.DDL)
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockStore()
	source := testutil.NewMockProvider(testutil.WithSchemaDDL(
		"CREATE TABLE nope\n\n" + testutil.TickersDDL + "\n\n" + testutil.PricesDDL,
	))

	report, err := New(source, store, testutil.TestDescription).Index(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"tickers", "stock_prices"}, report.Indexed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "missing column list", report.Skipped[0].Reason)
	assert.Equal(t, "2 tables indexed, 1 fragments skipped", report.String())

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "stock_prices", docs[0].ID)
	assert.Contains(t, docs[1].Text, "tickers: Financial Data Table\n\nDDL:\nCREATE TABLE tickers")
	assert.Equal(t, "tickers", docs[1].Metadata["table_name"])
}

func TestReindexOverwrites(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockStore()
	ix := New(testutil.NewMockProvider(testutil.WithSchemaDDL(testutil.TickersDDL)), store, "")

	_, err := ix.Index(ctx)
	require.NoError(t, err)
	_, err = ix.Index(ctx)
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	docs, _ := store.ListDocuments(ctx)
	assert.Contains(t, docs[0].Text, DefaultDescription)
}

func TestIndexStoreFailure(t *testing.T) {
	store := testutil.NewMockStore(testutil.WithStoreError("AddDocument", 1, errors.New("disk full")))
	source := testutil.NewMockProvider(testutil.WithSchemaDDL(testutil.TickersDDL + "\n\n" + testutil.PricesDDL))

	report, err := New(source, store, "").Index(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIndexing))
	assert.Equal(t, []string{"tickers"}, report.Indexed)
}

func TestIndexSchemaFailure(t *testing.T) {
	source := testutil.NewMockProvider(testutil.WithSchemaError(errors.New("database is locked")))

	_, err := New(source, testutil.NewMockStore(), "").Index(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDatabase))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 80))
	assert.Equal(t, "héé...", truncate("hééllo", 3))
	assert.Equal(t, "价格...", truncate("价格表格", 2))
}
