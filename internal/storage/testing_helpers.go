package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kyleking/askdb/internal/embedding"
)

// NewTestStore creates an initialized store in a temporary directory that is
// closed when the test ends. A nil embedder uses a 64-dimension HashProvider.
func NewTestStore(t *testing.T, embedder embedding.Provider) *DuckDBStore {
	t.Helper()

	if embedder == nil {
		embedder = embedding.NewHashProvider(64)
	}

	store, err := NewDuckDBStore(filepath.Join(t.TempDir(), "store.duckdb"), embedder)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test store: %v", err)
	}

	return store
}
