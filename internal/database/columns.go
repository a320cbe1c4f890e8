package database

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kyleking/askdb/internal/types"
)

type typeClass int

const (
	classUnknown typeClass = iota
	classInteger
	classDecimal
	classTemporal
	classText
)

var temporalLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// classify maps a driver-reported database type name onto a value class
func classify(dbType string) typeClass {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}

	switch {
	case t == "":
		return classUnknown
	case strings.HasPrefix(t, "INTERVAL"), t == "POINT":
		return classText
	case strings.Contains(t, "INT"), t == "SERIAL", t == "BIGSERIAL":
		return classInteger
	case strings.Contains(t, "DECIMAL"), strings.Contains(t, "NUMERIC"),
		strings.Contains(t, "REAL"), strings.Contains(t, "FLOAT"),
		strings.Contains(t, "DOUBLE"), t == "MONEY":
		return classDecimal
	case strings.Contains(t, "TIMESTAMP"), strings.Contains(t, "DATE"):
		return classTemporal
	default:
		return classText
	}
}

// typeColumn normalizes scanned driver values and infers a single type for the column
func typeColumn(name, dbType string, raw []any) types.Column {
	class := classify(dbType)

	values := make([]any, len(raw))
	for i, v := range raw {
		values[i] = normalizeValue(v, class)
	}

	col := types.Column{Name: name, Values: values}

	switch {
	case allNonNil(values, isNumber) && (hasNonNil(values) || class == classInteger || class == classDecimal):
		col.Type = types.ColumnNumeric
	case allNonNil(values, isTime) && (hasNonNil(values) || class == classTemporal):
		col.Type = types.ColumnTemporal
	default:
		col.Type = types.ColumnText

		for i, v := range values {
			if v != nil {
				values[i] = textValue(v)
			}
		}
	}

	return col
}

func normalizeValue(v any, class typeClass) any {
	switch typed := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeString(string(typed), class)
	case string:
		return normalizeString(typed, class)
	case int:
		return int64(typed)
	case int8:
		return int64(typed)
	case int16:
		return int64(typed)
	case int32:
		return int64(typed)
	case int64:
		return typed
	case uint8:
		return int64(typed)
	case uint16:
		return int64(typed)
	case uint32:
		return int64(typed)
	case uint64:
		return float64(typed)
	case float32:
		return float64(typed)
	case float64:
		return typed
	case *big.Int:
		f, _ := new(big.Float).SetInt(typed).Float64()
		return f
	case decimal.Decimal:
		return typed.InexactFloat64()
	case time.Time:
		return typed
	case interface{ Float64() float64 }:
		return typed.Float64()
	default:
		return v
	}
}

func normalizeString(s string, class typeClass) any {
	switch class {
	case classInteger:
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	case classDecimal:
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return d.InexactFloat64()
		}
	case classTemporal:
		for _, layout := range temporalLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t
			}
		}
	}

	return s
}

func textValue(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case time.Time:
		return typed.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func allNonNil(values []any, pred func(any) bool) bool {
	for _, v := range values {
		if v != nil && !pred(v) {
			return false
		}
	}

	return true
}

func hasNonNil(values []any) bool {
	for _, v := range values {
		if v != nil {
			return true
		}
	}

	return false
}
