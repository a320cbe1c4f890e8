package storage

import (
	"context"
	"database/sql"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
)

// Migration is one forward-only change to the store schema
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// storeMigrations are applied in slice order; versions only ever grow
var storeMigrations = []Migration{
	{
		Version:     1,
		Description: "Schema document store",
		SQL: `CREATE TABLE IF NOT EXISTS schema_documents (
			id VARCHAR PRIMARY KEY,
			document TEXT NOT NULL,
			metadata VARCHAR NOT NULL,
			embedding VARCHAR NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		Version:     2,
		Description: "Record the embedding model per document",
		SQL:         `ALTER TABLE schema_documents ADD COLUMN IF NOT EXISTS embedding_model VARCHAR`,
	},
}

// migrate brings the store schema up to date and returns the versions it
// applied. Each migration runs in its own transaction with its bookkeeping row.
func migrate(ctx context.Context, db *sql.DB, migrations []Migration) ([]int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to create migration table")
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return nil, err
	}

	applied := []int{}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		logging.WithField("version", m.Version).Infof("Applying store migration: %s", m.Description)

		if err := applyMigration(ctx, db, m); err != nil {
			return applied, err
		}

		applied = append(applied, m.Version)
	}

	return applied, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin migration")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "migration %d failed", m.Version)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		m.Version, m.Description); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to record migration %d", m.Version)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to commit migration %d", m.Version)
	}

	return nil
}

// schemaVersion returns the highest applied migration, 0 for a new store
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeDatabase, "failed to read store schema version")
	}

	return int(version.Int64), nil
}
