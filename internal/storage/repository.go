package storage

import (
	"context"
	"time"
)

// Store persists schema documents with their embeddings and answers
// similarity queries over them
type Store interface {
	// AddDocument inserts or replaces the document stored under id
	AddDocument(ctx context.Context, id, text string, metadata map[string]string) error

	// QuerySimilar returns up to k documents ranked by similarity to text
	QuerySimilar(ctx context.Context, text string, k int) ([]ScoredDocument, error)

	ListDocuments(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Document is one stored schema document
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ScoredDocument is a Document with its similarity to a query
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// Stats represents store statistics
type Stats struct {
	TotalDocuments int       `json:"total_documents"`
	LastUpdated    time.Time `json:"last_updated"`
	DatabaseSizeMB float64   `json:"database_size_mb"`
	EmbeddingModel string    `json:"embedding_model"`
}
