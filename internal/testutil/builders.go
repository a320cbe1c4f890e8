package testutil

import (
	"time"

	"github.com/kyleking/askdb/internal/types"
)

// ResultOption is a functional option for building test result sets
type ResultOption func(*types.ResultSet)

// WithNumeric appends a numeric column
func WithNumeric(name string, values ...any) ResultOption {
	return withColumn(name, types.ColumnNumeric, values)
}

// WithTemporal appends a temporal column
func WithTemporal(name string, values ...time.Time) ResultOption {
	raw := make([]any, len(values))
	for i, v := range values {
		raw[i] = v
	}
	return withColumn(name, types.ColumnTemporal, raw)
}

// WithText appends a text column
func WithText(name string, values ...any) ResultOption {
	return withColumn(name, types.ColumnText, values)
}

func withColumn(name string, typ types.ColumnType, values []any) ResultOption {
	return func(rs *types.ResultSet) {
		if values == nil {
			values = []any{}
		}
		rs.Columns = append(rs.Columns, types.Column{Name: name, Type: typ, Values: values})
	}
}

// NewResultSet builds a result set from column options, in order
func NewResultSet(opts ...ResultOption) *types.ResultSet {
	rs := &types.ResultSet{}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Days returns n consecutive UTC dates starting at start
func Days(start time.Time, n int) []time.Time {
	days := make([]time.Time, n)
	for i := range n {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// Sequence returns the float64 values from, from+1, ... with n entries
func Sequence(from float64, n int) []any {
	values := make([]any, n)
	for i := range n {
		values[i] = from + float64(i)
	}
	return values
}
