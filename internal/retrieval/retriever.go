// Package retrieval selects the schema documents relevant to a question
package retrieval

import (
	"context"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/storage"
)

// DefaultTopK is used when neither the caller nor the configuration sets k
const DefaultTopK = 3

// Retriever answers top-k similarity queries against the schema store
type Retriever struct {
	store    storage.Store
	defaultK int
}

// New creates a Retriever. defaultK <= 0 uses DefaultTopK.
func New(store storage.Store, defaultK int) *Retriever {
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}

	return &Retriever{store: store, defaultK: defaultK}
}

// Retrieve returns the text of the k documents most similar to question,
// most relevant first. k <= 0 uses the default. An empty store yields an
// empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]string, error) {
	if k <= 0 {
		k = r.defaultK
	}

	docs, err := r.store.QuerySimilar(ctx, question, k)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query schema store")
	}

	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Text)
	}

	if len(texts) == 0 {
		logging.WithField("k", k).Debug("No schema documents matched the question")
	}

	return texts, nil
}
