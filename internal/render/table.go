// Package render writes result sets and charts for people
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/types"
)

// Output formats accepted by Table
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Table writes rs in the given format
func Table(w io.Writer, rs *types.ResultSet, format string) error {
	if rs == nil {
		rs = &types.ResultSet{}
	}

	switch format {
	case FormatJSON:
		return renderJSON(w, rs)
	case FormatCSV, FormatMarkdown, "md", FormatTable, "":
	default:
		return errors.Newf(errors.ErrTypeValidation, "unknown output format %q", format).
			WithSuggestion("Use one of: table, markdown, csv, json")
	}

	if rs.IsEmpty() && format != FormatCSV {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(rs.Columns))
	for _, name := range rs.ColumnNames() {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i := range rs.RowCount() {
		row := make(table.Row, 0, len(rs.Columns))
		for _, v := range rs.Row(i) {
			row = append(row, formatValue(v))
		}
		t.AppendRow(row)
	}

	switch format {
	case FormatCSV:
		t.RenderCSV()
	case FormatMarkdown, "md":
		t.RenderMarkdown()
	default:
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", rs.RowCount())
	}

	return nil
}

func renderJSON(w io.Writer, rs *types.ResultSet) error {
	rows := make([]map[string]any, 0, rs.RowCount())
	names := rs.ColumnNames()
	for i := range rs.RowCount() {
		row := make(map[string]any, len(names))
		for j, v := range rs.Row(i) {
			row[names[j]] = v
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
