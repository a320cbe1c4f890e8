// Package synth implements the retrieve, generate, execute and repair loop
// that turns a question into SQL that runs
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/llm"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/observability"
	"github.com/kyleking/askdb/internal/types"
)

// DefaultMaxAttempts bounds the number of executed candidates per question
const DefaultMaxAttempts = 3

// ContextRetriever returns schema documents relevant to a question
type ContextRetriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]string, error)
}

// Executor runs candidate SQL. Execution failures are values, not errors.
type Executor interface {
	Execute(ctx context.Context, query string) types.ExecutionOutcome
}

// Synthesis is a successful run of the loop
type Synthesis struct {
	SQL      string
	Result   *types.ResultSet
	Attempts []types.AttemptRecord
}

// Synthesizer owns no per-question state and may serve concurrent questions
type Synthesizer struct {
	retriever   ContextRetriever
	completer   llm.Completer
	executor    Executor
	maxAttempts int
	topK        int
	dialect     string
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithMaxAttempts sets the number of candidates executed before giving up
func WithMaxAttempts(n int) Option {
	return func(s *Synthesizer) {
		s.maxAttempts = n
	}
}

// WithTopK sets the number of schema documents retrieved; <= 0 defers to the retriever
func WithTopK(k int) Option {
	return func(s *Synthesizer) {
		s.topK = k
	}
}

// WithDialect names the SQL dialect in prompts
func WithDialect(dialect string) Option {
	return func(s *Synthesizer) {
		s.dialect = dialect
	}
}

// New creates a Synthesizer. maxAttempts must be at least 1.
func New(retriever ContextRetriever, completer llm.Completer, executor Executor, opts ...Option) (*Synthesizer, error) {
	s := &Synthesizer{
		retriever:   retriever,
		completer:   completer,
		executor:    executor,
		maxAttempts: DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.maxAttempts < 1 {
		return nil, errors.NewConfigError(fmt.Sprintf("max attempts must be at least 1, got %d", s.maxAttempts), "synthesis.max_attempts")
	}

	return s, nil
}

// MaxAttempts returns the configured attempt budget
func (s *Synthesizer) MaxAttempts() int {
	return s.maxAttempts
}

// Synthesize retrieves schema context once, then generates and executes
// candidates until one succeeds or the attempt budget is spent. The first
// success wins. A completion failure aborts the question without being
// recorded as an attempt.
func (s *Synthesizer) Synthesize(ctx context.Context, question string) (*Synthesis, error) {
	logger := logging.WithFields(map[string]interface{}{
		"run_id": observability.RunIDFromContext(ctx),
	})

	schemaContext, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve schema context: %w", err)
	}

	attempts := make([]types.AttemptRecord, 0, s.maxAttempts)
	prompt := initialPrompt(question, schemaContext, s.dialect)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("synthesis cancelled before attempt %d: %w", attempt, err)
		}

		candidate, err := s.generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("generate attempt %d: %w", attempt, err)
		}

		logger.WithField("attempt", attempt).Infof("Executing Attempt #%d: %s", attempt, candidate)

		start := time.Now()
		outcome := s.executor.Execute(ctx, candidate)
		observability.ObserveExecution(outcome.Succeeded(), time.Since(start))

		record := types.AttemptRecord{Index: attempt, SQL: candidate, Outcome: outcome}
		attempts = append(attempts, record)

		if outcome.Succeeded() {
			return &Synthesis{SQL: candidate, Result: outcome.Result, Attempts: attempts}, nil
		}

		logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"error":   outcome.Err,
		}).Warn("SQL failed")

		if attempt < s.maxAttempts {
			prompt = repairPrompt(candidate, outcome.Err, schemaContext, s.dialect)
		}
	}

	return nil, &ExhaustedError{Question: question, Attempts: attempts}
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	raw, err := s.completer.Complete(ctx, prompt, systemPrompt)
	observability.ObserveCompletion(time.Since(start))
	if err != nil {
		return "", err
	}

	return ExtractSQL(raw), nil
}
