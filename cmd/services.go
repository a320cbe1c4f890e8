package cmd

import (
	"context"
	"fmt"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/database"
	"github.com/kyleking/askdb/internal/embedding"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/llm"
	"github.com/kyleking/askdb/internal/storage"
)

// requireConfig returns the loaded configuration or a config error
func requireConfig(ctx context.Context) (*config.Config, error) {
	cfg := getConfigFromContext(ctx)
	if cfg == nil {
		return nil, errors.NewConfigError("configuration not loaded", "")
	}
	return cfg, nil
}

// openDatabase connects to the target database
func openDatabase(cfg *config.Config) (*database.SQLProvider, error) {
	provider, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return provider, nil
}

// openStore creates and initializes the schema document store
func openStore(ctx context.Context, cfg *config.Config) (*storage.DuckDBStore, error) {
	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewDuckDBStore(cfg.Store.Path, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return store, nil
}

// newCompleter builds the completion client from configuration
func newCompleter(cfg *config.Config) (*llm.Client, error) {
	return llm.NewClient(llm.ConfigFromApp(cfg))
}
