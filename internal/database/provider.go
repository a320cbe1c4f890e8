package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"  // Postgres driver
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	_ "modernc.org/sqlite"              // SQLite driver

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/types"
)

// Provider executes candidate SQL and exposes the schema of the target database
type Provider interface {
	Execute(ctx context.Context, query string) types.ExecutionOutcome
	SchemaDDL(ctx context.Context) (string, error)
	Dialect() string
	Ping(ctx context.Context) error
	Close() error
}

// SQLProvider implements Provider over database/sql
type SQLProvider struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
}

// Open connects to the database described by cfg
func Open(cfg config.DatabaseConfig) (*SQLProvider, error) {
	dialect, err := LookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := dialect.prepareDSN(cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "invalid %s dsn", dialect.Name)
	}

	if dialect.fileBased {
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create database directory")
			}
		}
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to open %s database", dialect.Name)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	timeout, err := time.ParseDuration(cfg.QueryTimeout)
	if err != nil {
		timeout = 30 * time.Second
	}

	logging.WithFields(map[string]interface{}{
		"driver":  dialect.Name,
		"timeout": timeout,
	}).Debug("Opened target database")

	return New(db, dialect, timeout), nil
}

// New wraps an existing pool
func New(db *sql.DB, dialect Dialect, timeout time.Duration) *SQLProvider {
	return &SQLProvider{
		db:      db,
		dialect: dialect,
		timeout: timeout,
	}
}

// Execute runs query on a dedicated connection inside a transaction. The
// transaction is committed when the query succeeds and rolled back otherwise.
// Driver errors are reported as a failed outcome, never as a Go error.
func (p *SQLProvider) Execute(ctx context.Context, query string) types.ExecutionOutcome {
	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return types.Failure(err.Error())
	}

	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return types.Failure(err.Error())
	}

	rs, err := p.query(ctx, tx, query)
	if err != nil {
		_ = tx.Rollback()
		return types.Failure(err.Error())
	}

	if err := tx.Commit(); err != nil {
		return types.Failure(err.Error())
	}

	return types.Success(rs)
}

func (p *SQLProvider) query(ctx context.Context, tx *sql.Tx, query string) (*types.ResultSet, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	// Empty input, bare comments and DML or DDL without RETURNING have no
	// result set to present
	if len(names) == 0 {
		return nil, fmt.Errorf("statement returned no result columns")
	}

	dbTypes := make([]string, len(names))

	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			if i < len(dbTypes) {
				dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
			}
		}
	}

	raw := make([][]any, len(names))

	for rows.Next() {
		values := make([]any, len(names))
		targets := make([]any, len(names))

		for i := range values {
			targets[i] = &values[i]
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		for i, v := range values {
			raw[i] = append(raw[i], v)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	rs := &types.ResultSet{Columns: make([]types.Column, len(names))}
	for i, name := range names {
		rs.Columns[i] = typeColumn(name, dbTypes[i], raw[i])
	}

	return rs, nil
}

// SchemaDDL returns the CREATE TABLE definitions of every user table
func (p *SQLProvider) SchemaDDL(ctx context.Context) (string, error) {
	statements, err := p.dialect.schema(ctx, p.db)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeDatabase, "failed to read %s schema", p.dialect.Name)
	}

	return strings.Join(statements, "\n\n"), nil
}

// Dialect names the SQL dialect of the target database
func (p *SQLProvider) Dialect() string {
	return p.dialect.Name
}

// Ping verifies the database is reachable
func (p *SQLProvider) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to ping %s database", p.dialect.Name)
	}

	return nil
}

// DB exposes the underlying pool
func (p *SQLProvider) DB() *sql.DB {
	return p.db
}

// Close closes the database connection pool
func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}

	return nil
}

func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}

	cfg.ParseTime = true

	return cfg.FormatDSN(), nil
}
