// Package assistant answers questions end to end: SQL synthesis, then
// chart classification of the result
package assistant

import (
	"context"
	stderrors "errors"

	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/observability"
	"github.com/kyleking/askdb/internal/synth"
	"github.com/kyleking/askdb/internal/types"
	"github.com/kyleking/askdb/internal/viz"
)

// Synthesizer turns a question into SQL that executes
type Synthesizer interface {
	Synthesize(ctx context.Context, question string) (*synth.Synthesis, error)
}

// Answer is the outcome of one question
type Answer struct {
	RunID    string                `json:"run_id"`
	Question string                `json:"question"`
	SQL      string                `json:"sql"`
	Result   *types.ResultSet      `json:"result"`
	Chart    viz.ChartSpec         `json:"chart"`
	Attempts []types.AttemptRecord `json:"attempts"`
}

// Assistant is the caller-facing entry point
type Assistant struct {
	synth Synthesizer
}

// New creates an Assistant
func New(s Synthesizer) *Assistant {
	return &Assistant{synth: s}
}

// Answer synthesizes SQL for question and classifies the result. It fails
// with *synth.ExhaustedError or a connectivity error from the completion
// service.
func (a *Assistant) Answer(ctx context.Context, question string) (*Answer, error) {
	runID := observability.RunIDFromContext(ctx)
	if runID == "" {
		runID = observability.NewRunID()
		ctx = observability.ContextWithRunID(ctx, runID)
	}

	logger := logging.WithFields(map[string]interface{}{
		"run_id":   runID,
		"question": question,
	})

	result, err := a.synth.Synthesize(ctx, question)
	if err != nil {
		var exhausted *synth.ExhaustedError
		if stderrors.As(err, &exhausted) {
			observability.IncrementQuestions(observability.StatusExhausted)
		} else {
			observability.IncrementQuestions(observability.StatusAborted)
		}
		logger.ErrorWithErr("Question failed", err)
		return nil, err
	}

	observability.IncrementQuestions(observability.StatusAnswered)

	chart := viz.Classify(result.Result, question)
	logger.WithFields(map[string]interface{}{
		"attempts": len(result.Attempts),
		"rows":     result.Result.RowCount(),
		"chart":    string(chart.Kind),
	}).Infof("Detected Topology: %s", chart.Kind.Topology())

	return &Answer{
		RunID:    runID,
		Question: question,
		SQL:      result.SQL,
		Result:   result.Result,
		Chart:    chart,
		Attempts: result.Attempts,
	}, nil
}
