package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kyleking/askdb/internal/errors"
)

// Dialect describes how to reach and introspect one database engine
type Dialect struct {
	Name       string
	DriverName string

	fileBased  bool
	prepareDSN func(dsn string) (string, error)
	schema     func(ctx context.Context, db *sql.DB) ([]string, error)
}

var dialects = map[string]Dialect{
	"sqlite": {
		Name:       "sqlite",
		DriverName: "sqlite",
		fileBased:  true,
		prepareDSN: passthroughDSN,
		schema:     sqliteSchema,
	},
	"duckdb": {
		Name:       "duckdb",
		DriverName: "duckdb",
		fileBased:  true,
		prepareDSN: passthroughDSN,
		schema:     duckdbSchema,
	},
	"postgres": {
		Name:       "postgres",
		DriverName: "pgx",
		prepareDSN: passthroughDSN,
		schema:     postgresSchema,
	},
	"mysql": {
		Name:       "mysql",
		DriverName: "mysql",
		prepareDSN: mysqlDSN,
		schema:     mysqlSchema,
	},
}

func (d Dialect) rebind(query string) string {
	if d.Name != "postgres" {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// LookupDialect returns the dialect registered under name
func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Dialect{}, errors.Newf(errors.ErrTypeConfig, "unsupported database driver: %s", name).
			WithSuggestion("Use one of: sqlite, duckdb, postgres, mysql")
	}

	return d, nil
}

func passthroughDSN(dsn string) (string, error) {
	return dsn, nil
}

func collectStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []string

	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}

		if s.Valid && strings.TrimSpace(s.String) != "" {
			out = append(out, s.String)
		}
	}

	return out, rows.Err()
}

func sqliteSchema(ctx context.Context, db *sql.DB) ([]string, error) {
	return collectStrings(ctx, db,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND sql IS NOT NULL ORDER BY name")
}

func duckdbSchema(ctx context.Context, db *sql.DB) ([]string, error) {
	return collectStrings(ctx, db,
		"SELECT sql FROM duckdb_tables() WHERE NOT internal ORDER BY schema_name, table_name")
}

type pgColumn struct {
	schema   string
	table    string
	name     string
	dataType string
	nullable bool
}

// postgresSchema rebuilds CREATE TABLE statements from information_schema
func postgresSchema(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_schema, table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name, ordinal_position`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var columns []pgColumn

	for rows.Next() {
		var (
			c        pgColumn
			nullable string
		)

		if err := rows.Scan(&c.schema, &c.table, &c.name, &c.dataType, &nullable); err != nil {
			return nil, err
		}

		c.nullable = strings.EqualFold(nullable, "YES")
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buildCreateStatements(columns), nil
}

func buildCreateStatements(columns []pgColumn) []string {
	var (
		statements []string
		current    string
		defs       []string
	)

	flush := func() {
		if current != "" {
			statements = append(statements,
				fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", current, strings.Join(defs, ",\n  ")))
		}
	}

	for _, c := range columns {
		name := c.table
		if c.schema != "" && c.schema != "public" {
			name = c.schema + "." + c.table
		}

		if name != current {
			flush()

			current = name
			defs = nil
		}

		def := c.name + " " + strings.ToUpper(c.dataType)
		if !c.nullable {
			def += " NOT NULL"
		}

		defs = append(defs, def)
	}

	flush()

	return statements
}

func mysqlSchema(ctx context.Context, db *sql.DB) ([]string, error) {
	tables, err := collectStrings(ctx, db, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}

	statements := make([]string, 0, len(tables))

	for _, table := range tables {
		var name, ddl string

		query := "SHOW CREATE TABLE `" + strings.ReplaceAll(table, "`", "``") + "`"
		if err := db.QueryRowContext(ctx, query).Scan(&name, &ddl); err != nil {
			return nil, fmt.Errorf("show create table %s: %w", table, err)
		}

		statements = append(statements, ddl)
	}

	return statements, nil
}
