// Package indexer turns the target database schema into retrievable documents
package indexer

import (
	"context"
	"fmt"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/observability"
	"github.com/kyleking/askdb/internal/storage"
)

// DefaultDescription is attached to every indexed table unless configured
const DefaultDescription = "Database table"

// SchemaSource provides the raw DDL dump of a database
type SchemaSource interface {
	SchemaDDL(ctx context.Context) (string, error)
}

// Report summarizes one indexing run
type Report struct {
	Indexed []string    `json:"indexed"`
	Skipped []ParseSkip `json:"skipped"`
}

func (r Report) String() string {
	return fmt.Sprintf("%d tables indexed, %d fragments skipped", len(r.Indexed), len(r.Skipped))
}

// Indexer writes one schema document per table into the store
type Indexer struct {
	source      SchemaSource
	store       storage.Store
	description string
}

// New creates an Indexer. An empty description uses DefaultDescription.
func New(source SchemaSource, store storage.Store, description string) *Indexer {
	if description == "" {
		description = DefaultDescription
	}

	return &Indexer{source: source, store: store, description: description}
}

// Index reads the schema and upserts a document per table, keyed by table
// name. Unparseable fragments are skipped and reported; a store write
// failure stops the run.
func (ix *Indexer) Index(ctx context.Context) (Report, error) {
	report := Report{Indexed: []string{}, Skipped: []ParseSkip{}}

	raw, err := ix.source.SchemaDDL(ctx)
	if err != nil {
		return report, errors.Wrap(err, errors.ErrTypeDatabase, "failed to read database schema")
	}

	for _, fragment := range SplitDDL(raw) {
		if fragment.Skip != nil {
			logging.WithFields(map[string]interface{}{
				"reason":   fragment.Skip.Reason,
				"fragment": truncate(fragment.Skip.Fragment, 80),
			}).Warn("Skipping DDL fragment")
			report.Skipped = append(report.Skipped, *fragment.Skip)
			continue
		}

		doc := *fragment.Document
		doc.Description = ix.description

		if err := ix.store.AddDocument(ctx, doc.TableName, doc.Text(), doc.Metadata()); err != nil {
			observability.ObserveIndexing(len(report.Indexed), len(report.Skipped))
			return report, errors.Wrapf(err, errors.ErrTypeIndexing, "failed to store schema document %s", doc.TableName)
		}

		logging.WithField("table", doc.TableName).Debug("Indexed table")
		report.Indexed = append(report.Indexed, doc.TableName)
	}

	observability.ObserveIndexing(len(report.Indexed), len(report.Skipped))

	return report, nil
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
