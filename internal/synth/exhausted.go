package synth

import (
	"fmt"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/types"
)

// ExhaustedError reports that every attempt produced SQL that failed to execute
type ExhaustedError struct {
	Question string
	Attempts []types.AttemptRecord
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("failed to generate valid SQL after %d attempts", len(e.Attempts))
	if n := len(e.Attempts); n > 0 {
		msg += ": " + e.Attempts[n-1].Outcome.Err
	}
	return msg
}

// Unwrap exposes the structured error type so errors.IsType matches ErrTypeExhausted
func (e *ExhaustedError) Unwrap() error {
	return errors.Newf(errors.ErrTypeExhausted, "no executable SQL for %q", e.Question).
		WithSuggestion("Run the index command if the schema changed").
		WithSuggestion("Rephrase the question or raise --max-attempts")
}
