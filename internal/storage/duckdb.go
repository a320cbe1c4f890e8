package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/askdb/internal/embedding"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
)

// DuckDBStore implements Store on a local DuckDB file
type DuckDBStore struct {
	db       *sql.DB
	path     string
	embedder embedding.Provider
}

// NewDuckDBStore opens (creating if needed) the store at dbPath
func NewDuckDBStore(dbPath string, embedder embedding.Provider) (*DuckDBStore, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create store directory")
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open store")
	}

	// DuckDB allows a single writer per file
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping store")
	}

	return &DuckDBStore{
		db:       db,
		path:     dbPath,
		embedder: embedder,
	}, nil
}

// Initialize creates or upgrades the store schema
func (s *DuckDBStore) Initialize(ctx context.Context) error {
	_, err := migrate(ctx, s.db, storeMigrations)
	return err
}

// AddDocument embeds text and upserts it under id
func (s *DuckDBStore) AddDocument(ctx context.Context, id, text string, metadata map[string]string) error {
	if id == "" {
		return errors.New(errors.ErrTypeValidation, "document id must not be empty")
	}

	vec, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeEmbedding, "failed to embed document %s", id)
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	embeddingJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO schema_documents (id, document, metadata, embedding, embedding_model, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, text, string(metadataJSON), string(embeddingJSON), s.embedder.GetName(), time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to store document %s", id)
	}

	logging.WithFields(map[string]interface{}{
		"id":         id,
		"dimensions": len(vec),
	}).Debug("Stored schema document")

	return nil
}

// QuerySimilar ranks every stored document by cosine similarity to text and
// returns the best k. Documents embedded by a different model are skipped.
func (s *DuckDBStore) QuerySimilar(ctx context.Context, text string, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		return []ScoredDocument{}, nil
	}

	query, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to embed query")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document, metadata, embedding, embedding_model, updated_at
		FROM schema_documents`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query documents")
	}
	defer rows.Close()

	scored := []ScoredDocument{}
	stale := 0

	for rows.Next() {
		doc, vec, model, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}

		if model != s.embedder.GetName() || len(vec) != len(query) {
			stale++
			continue
		}

		scored = append(scored, ScoredDocument{Document: *doc, Score: cosineSimilarity(query, vec)})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate documents")
	}

	if stale > 0 {
		logging.WithField("skipped", stale).Warn("Schema documents were embedded with another model; re-run index")
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}

		return scored[i].ID < scored[j].ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	return scored, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(rows rowScanner) (*Document, []float32, string, error) {
	var (
		doc                     Document
		metadataJSON, embedJSON string
		model                   sql.NullString
	)

	if err := rows.Scan(&doc.ID, &doc.Text, &metadataJSON, &embedJSON, &model, &doc.UpdatedAt); err != nil {
		return nil, nil, "", errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan document")
	}

	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, nil, "", errors.Wrapf(err, errors.ErrTypeDatabase, "corrupt metadata for document %s", doc.ID)
	}

	var vec []float32
	if err := json.Unmarshal([]byte(embedJSON), &vec); err != nil {
		return nil, nil, "", errors.Wrapf(err, errors.ErrTypeDatabase, "corrupt embedding for document %s", doc.ID)
	}

	return &doc, vec, model.String, nil
}

// ListDocuments returns every stored document ordered by id
func (s *DuckDBStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document, metadata, embedding, embedding_model, updated_at
		FROM schema_documents ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list documents")
	}
	defer rows.Close()

	var docs []Document

	for rows.Next() {
		doc, _, _, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}

		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

// Count returns the number of stored documents
func (s *DuckDBStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_documents").Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeDatabase, "failed to count documents")
	}

	return n, nil
}

// GetStats returns statistics about the store
func (s *DuckDBStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{EmbeddingModel: s.embedder.GetName()}

	var lastUpdated sql.NullTime

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MAX(updated_at) FROM schema_documents").Scan(&stats.TotalDocuments, &lastUpdated)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get store statistics")
	}

	if lastUpdated.Valid {
		stats.LastUpdated = lastUpdated.Time
	}

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
		}
	}

	return stats, nil
}

// Clear removes every stored document
func (s *DuckDBStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM schema_documents"); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to clear documents")
	}

	return nil
}

// Close closes the database connection
func (s *DuckDBStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
