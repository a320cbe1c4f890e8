// Package viz picks a chart type from the shape of a result set
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/kyleking/askdb/internal/types"
)

// ChartKind is the chart chosen for a result set
type ChartKind string

const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"
	ChartNone    ChartKind = "none"
)

// MaxBarCategories is the exclusive upper bound on distinct bar labels
const MaxBarCategories = 20

// Topology names the data shape behind each chart kind
func (k ChartKind) Topology() string {
	switch k {
	case ChartLine:
		return "Time Series"
	case ChartBar:
		return "Categorical"
	case ChartScatter:
		return "Correlation"
	default:
		return "Tabular"
	}
}

// ChartSpec describes what to plot. X and Y are column names.
type ChartSpec struct {
	Kind  ChartKind `json:"kind"`
	X     string    `json:"x,omitempty"`
	Y     []string  `json:"y,omitempty"`
	Title string    `json:"title,omitempty"`
}

// IsNone reports whether no chart was chosen
func (s ChartSpec) IsNone() bool {
	return s.Kind == ChartNone || s.Kind == ""
}

// Layouts accepted when sniffing dates out of text columns
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Classify chooses a chart for rs. It never mutates rs and never fails;
// an empty or nil result set yields ChartNone.
//
// Rules, first match wins:
//  1. a temporal and a numeric column: line over the first of each
//  2. a categorical and a numeric column, fewer than MaxBarCategories
//     distinct labels: bar over the first of each
//  3. two numeric columns: scatter of the first two
func Classify(rs *types.ResultSet, title string) ChartSpec {
	none := ChartSpec{Kind: ChartNone, Title: title}
	if rs.IsEmpty() {
		return none
	}

	var numeric, temporal, categorical []types.Column
	for _, col := range rs.Columns {
		switch col.Type {
		case types.ColumnNumeric:
			numeric = append(numeric, col)
		case types.ColumnTemporal:
			temporal = append(temporal, col)
		}
	}

	// Text dates are only sniffed when no column is typed temporal, and
	// only the first matching column counts
	sniffed := ""
	if len(temporal) == 0 {
		for _, col := range rs.Columns {
			if col.Type == types.ColumnText && looksTemporal(col.Values) {
				temporal = append(temporal, col)
				sniffed = col.Name
				break
			}
		}
	}

	for _, col := range rs.Columns {
		if col.Type == types.ColumnText && col.Name != sniffed {
			categorical = append(categorical, col)
		}
	}

	switch {
	case len(temporal) > 0 && len(numeric) > 0:
		return ChartSpec{Kind: ChartLine, X: temporal[0].Name, Y: []string{numeric[0].Name}, Title: title}
	case len(categorical) > 0 && len(numeric) > 0 && distinct(categorical[0].Values) < MaxBarCategories:
		return ChartSpec{Kind: ChartBar, X: categorical[0].Name, Y: []string{numeric[0].Name}, Title: title}
	case len(numeric) >= 2:
		return ChartSpec{Kind: ChartScatter, X: numeric[0].Name, Y: []string{numeric[1].Name}, Title: title}
	default:
		return none
	}
}

func looksTemporal(values []any) bool {
	seen := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, ok := ParseDate(fmt.Sprint(v)); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// ParseDate parses s with the layouts accepted for text date columns
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func distinct(values []any) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		seen[fmt.Sprint(v)] = struct{}{}
	}
	return len(seen)
}
