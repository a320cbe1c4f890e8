package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/types"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func mustDialect(t *testing.T, name string) Dialect {
	t.Helper()

	d, err := LookupDialect(name)
	require.NoError(t, err)

	return d
}

func TestExecuteCommitsOnSuccess(t *testing.T) {
	db, mock := newSQLMock(t)
	p := New(db, mustDialect(t, "sqlite"), time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT symbol, close_price FROM stock_prices").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("symbol").OfType("TEXT", ""),
			sqlmock.NewColumn("close_price").OfType("DECIMAL", ""),
		).AddRow("AAPL", "101.25").AddRow("MSFT", "99.5"))
	mock.ExpectCommit()

	outcome := p.Execute(context.Background(), "SELECT symbol, close_price FROM stock_prices")

	require.True(t, outcome.Succeeded())
	rs := outcome.Result
	require.Equal(t, 2, rs.RowCount())
	assert.Equal(t, []string{"symbol", "close_price"}, rs.ColumnNames())
	assert.Equal(t, types.ColumnText, rs.Columns[0].Type)
	assert.Equal(t, types.ColumnNumeric, rs.Columns[1].Type)
	assert.Equal(t, []any{101.25, 99.5}, rs.Columns[1].Values)
	assertSQLMock(t, mock)
}

func TestExecuteRollsBackOnFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	p := New(db, mustDialect(t, "sqlite"), time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM prices").
		WillReturnError(errors.New("no such table: prices"))
	mock.ExpectRollback()

	outcome := p.Execute(context.Background(), "SELECT * FROM prices")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, "no such table: prices", outcome.Err)
	assert.Nil(t, outcome.Result)
	assertSQLMock(t, mock)
}

func TestExecuteZeroRowsIsSuccess(t *testing.T) {
	db, mock := newSQLMock(t)
	p := New(db, mustDialect(t, "sqlite"), 0)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT symbol FROM tickers WHERE 1 = 0").
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}))
	mock.ExpectCommit()

	outcome := p.Execute(context.Background(), "SELECT symbol FROM tickers WHERE 1 = 0")

	require.True(t, outcome.Succeeded())
	assert.True(t, outcome.Result.IsEmpty())
	assert.Equal(t, []string{"symbol"}, outcome.Result.ColumnNames())
	assertSQLMock(t, mock)
}

func TestExecuteNoColumnsRollsBack(t *testing.T) {
	db, mock := newSQLMock(t)
	p := New(db, mustDialect(t, "sqlite"), time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE tickers SET sector = 'Tech'").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectRollback()

	outcome := p.Execute(context.Background(), "UPDATE tickers SET sector = 'Tech'")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, "statement returned no result columns", outcome.Err)
	assertSQLMock(t, mock)
}

func TestExecuteBeginFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	p := New(db, mustDialect(t, "sqlite"), time.Second)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	outcome := p.Execute(context.Background(), "SELECT 1")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, "database is locked", outcome.Err)
	assertSQLMock(t, mock)
}

func TestExecuteCommitFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	p := New(db, mustDialect(t, "sqlite"), time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	outcome := p.Execute(context.Background(), "SELECT 1")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, "commit failed", outcome.Err)
	assertSQLMock(t, mock)
}

func TestExecuteRowScanErrorRollsBack(t *testing.T) {
	db, mock := newSQLMock(t)
	p := New(db, mustDialect(t, "sqlite"), time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT a FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(int64(1)).RowError(0, errors.New("disk I/O error")))
	mock.ExpectRollback()

	outcome := p.Execute(context.Background(), "SELECT a FROM t")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, "disk I/O error", outcome.Err)
	assertSQLMock(t, mock)
}

func TestLookupDialect(t *testing.T) {
	for _, name := range []string{"sqlite", "duckdb", "postgres", "mysql", " SQLite "} {
		t.Run(name, func(t *testing.T) {
			_, err := LookupDialect(name)
			assert.NoError(t, err)
		})
	}

	_, err := LookupDialect("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDialectDriverNames(t *testing.T) {
	assert.Equal(t, "sqlite", mustDialect(t, "sqlite").DriverName)
	assert.Equal(t, "duckdb", mustDialect(t, "duckdb").DriverName)
	assert.Equal(t, "pgx", mustDialect(t, "postgres").DriverName)
	assert.Equal(t, "mysql", mustDialect(t, "mysql").DriverName)
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b, c) VALUES (?, ?, ?)"

	assert.Equal(t, q, mustDialect(t, "sqlite").rebind(q))
	assert.Equal(t, "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)", mustDialect(t, "postgres").rebind(q))
}

func TestMySQLDSNEnablesParseTime(t *testing.T) {
	dsn, err := mysqlDSN("user:pass@tcp(localhost:3306)/finance")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}

func TestBuildCreateStatements(t *testing.T) {
	columns := []pgColumn{
		{schema: "public", table: "tickers", name: "symbol", dataType: "character varying", nullable: false},
		{schema: "public", table: "tickers", name: "sector", dataType: "text", nullable: true},
		{schema: "market", table: "stock_prices", name: "close_price", dataType: "numeric", nullable: true},
	}

	statements := buildCreateStatements(columns)

	require.Len(t, statements, 2)
	assert.Equal(t, "CREATE TABLE tickers (\n  symbol CHARACTER VARYING NOT NULL,\n  sector TEXT\n);", statements[0])
	assert.Equal(t, "CREATE TABLE market.stock_prices (\n  close_price NUMERIC\n);", statements[1])
	assert.Empty(t, buildCreateStatements(nil))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}
