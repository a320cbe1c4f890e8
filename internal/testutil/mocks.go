package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/types"
)

// MockCompleter replays scripted completions and records every prompt it receives
type MockCompleter struct {
	mu sync.Mutex

	responses []string
	errors    *ErrorInjector
	prompts   []string
	systems   []string
}

// CompleterOption is a functional option for configuring MockCompleter
type CompleterOption func(*MockCompleter)

// WithResponses sets the completions returned in order. The last one repeats.
func WithResponses(responses ...string) CompleterOption {
	return func(m *MockCompleter) {
		m.responses = responses
	}
}

// WithCompletionError fails every call after the first n successful ones
func WithCompletionError(n int, err error) CompleterOption {
	return func(m *MockCompleter) {
		m.errors.InjectErrorAfterN("Complete", n, err)
	}
}

// NewMockCompleter creates a new mock completer with the given options
func NewMockCompleter(opts ...CompleterOption) *MockCompleter {
	mock := &MockCompleter{errors: NewErrorInjector()}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Complete returns the next scripted response
func (m *MockCompleter) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := m.errors.ShouldError("Complete"); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	m.systems = append(m.systems, systemPrompt)

	if len(m.responses) == 0 {
		return "", nil
	}

	i := len(m.prompts) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}

	return m.responses[i], nil
}

// Prompts returns every prompt received so far
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.prompts...)
}

// SystemPrompts returns every system prompt received so far
func (m *MockCompleter) SystemPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.systems...)
}

// MockProvider is a database provider with scripted execution outcomes
type MockProvider struct {
	mu sync.Mutex

	outcomes  []types.ExecutionOutcome
	schema    string
	schemaErr error
	pingErr   error
	dialect   string
	executed  []string
	closed    bool
}

// ProviderOption is a functional option for configuring MockProvider
type ProviderOption func(*MockProvider)

// WithOutcomes sets the execution outcomes returned in order. The last one repeats.
func WithOutcomes(outcomes ...types.ExecutionOutcome) ProviderOption {
	return func(m *MockProvider) {
		m.outcomes = outcomes
	}
}

// WithSchemaDDL sets the raw DDL dump
func WithSchemaDDL(ddl string) ProviderOption {
	return func(m *MockProvider) {
		m.schema = ddl
	}
}

// WithSchemaError makes SchemaDDL fail
func WithSchemaError(err error) ProviderOption {
	return func(m *MockProvider) {
		m.schemaErr = err
	}
}

// WithPingError makes Ping fail
func WithPingError(err error) ProviderOption {
	return func(m *MockProvider) {
		m.pingErr = err
	}
}

// NewMockProvider creates a new mock database provider with the given options
func NewMockProvider(opts ...ProviderOption) *MockProvider {
	mock := &MockProvider{dialect: "sqlite"}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Execute records the query and returns the next scripted outcome
func (m *MockProvider) Execute(_ context.Context, query string) types.ExecutionOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executed = append(m.executed, query)

	if len(m.outcomes) == 0 {
		return types.Success(nil)
	}

	i := len(m.executed) - 1
	if i >= len(m.outcomes) {
		i = len(m.outcomes) - 1
	}

	return m.outcomes[i]
}

// SchemaDDL returns the configured DDL dump
func (m *MockProvider) SchemaDDL(_ context.Context) (string, error) {
	return m.schema, m.schemaErr
}

// Dialect returns the mock dialect name
func (m *MockProvider) Dialect() string {
	return m.dialect
}

// Ping returns the configured ping error
func (m *MockProvider) Ping(_ context.Context) error {
	return m.pingErr
}

// Close marks the provider closed
func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Executed returns every query passed to Execute
func (m *MockProvider) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.executed...)
}

// MockStore is an in-memory storage.Store. QuerySimilar ranks documents by
// the number of query words they contain, then by id.
type MockStore struct {
	mu sync.RWMutex

	docs   map[string]storage.Document
	errors *ErrorInjector
}

// StoreOption is a functional option for configuring MockStore
type StoreOption func(*MockStore)

// WithDocument preloads a document
func WithDocument(id, text string) StoreOption {
	return func(m *MockStore) {
		m.docs[id] = storage.Document{ID: id, Text: text, Metadata: map[string]string{}, UpdatedAt: time.Now()}
	}
}

// WithStoreError fails the named method ("AddDocument", "QuerySimilar", ...)
// after the first n successful calls
func WithStoreError(method string, n int, err error) StoreOption {
	return func(m *MockStore) {
		m.errors.InjectErrorAfterN(method, n, err)
	}
}

// NewMockStore creates a new in-memory store with the given options
func NewMockStore(opts ...StoreOption) *MockStore {
	mock := &MockStore{
		docs:   make(map[string]storage.Document),
		errors: NewErrorInjector(),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// AddDocument inserts or replaces a document
func (m *MockStore) AddDocument(_ context.Context, id, text string, metadata map[string]string) error {
	if err := m.errors.ShouldError("AddDocument"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[id] = storage.Document{ID: id, Text: text, Metadata: metadata, UpdatedAt: time.Now()}

	return nil
}

// QuerySimilar returns up to k documents ranked by shared words with text
func (m *MockStore) QuerySimilar(_ context.Context, text string, k int) ([]storage.ScoredDocument, error) {
	if err := m.errors.ShouldError("QuerySimilar"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 {
		return []storage.ScoredDocument{}, nil
	}

	words := strings.Fields(strings.ToLower(text))
	results := make([]storage.ScoredDocument, 0, len(m.docs))
	for _, doc := range m.docs {
		lower := strings.ToLower(doc.Text)
		score := 0.0
		for _, w := range words {
			if strings.Contains(lower, w) {
				score++
			}
		}
		results = append(results, storage.ScoredDocument{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// ListDocuments returns all documents ordered by id
func (m *MockStore) ListDocuments(_ context.Context) ([]storage.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]storage.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	return docs, nil
}

// Count returns the number of documents
func (m *MockStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// GetStats returns document totals
func (m *MockStore) GetStats(_ context.Context) (*storage.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &storage.Stats{TotalDocuments: len(m.docs), EmbeddingModel: "mock"}, nil
}

// Clear removes all documents
func (m *MockStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]storage.Document)
	return nil
}

// Close is a no-op
func (m *MockStore) Close() error {
	return nil
}

// CallCount returns how many times AddDocument or QuerySimilar was called
func (m *MockStore) CallCount(method string) int {
	return m.errors.GetCount(method)
}
