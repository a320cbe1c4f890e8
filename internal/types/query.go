package types

// ExecutionOutcome is the result of running one candidate query. Exactly one of
// Result and Err is meaningful: a failed execution carries the driver's error
// message verbatim and a nil Result.
type ExecutionOutcome struct {
	Result *ResultSet `json:"result,omitempty"`
	Err    string     `json:"error,omitempty"`
	failed bool
}

// Success wraps a result set, which may have zero rows.
func Success(rs *ResultSet) ExecutionOutcome {
	if rs == nil {
		rs = &ResultSet{}
	}

	return ExecutionOutcome{Result: rs}
}

// Failure wraps an execution error message.
func Failure(message string) ExecutionOutcome {
	return ExecutionOutcome{Err: message, failed: true}
}

// Succeeded reports whether the query executed without error
func (o ExecutionOutcome) Succeeded() bool {
	return !o.failed
}

// AttemptRecord is one generate-execute cycle of the repair loop
type AttemptRecord struct {
	Index   int              `json:"index"`
	SQL     string           `json:"sql"`
	Outcome ExecutionOutcome `json:"outcome"`
}
