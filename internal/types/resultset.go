package types

// ColumnType is the inferred scalar type shared by every value in a column
type ColumnType string

const (
	ColumnNumeric  ColumnType = "numeric"
	ColumnTemporal ColumnType = "temporal"
	ColumnText     ColumnType = "text"
)

// Column is a named, typed sequence of values. Nil entries are SQL NULLs.
type Column struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Values []any      `json:"values"`
}

// ResultSet is a column-oriented table returned by a successful execution
type ResultSet struct {
	Columns []Column `json:"columns"`
}

// RowCount returns the number of rows in the result
func (rs *ResultSet) RowCount() int {
	if rs == nil || len(rs.Columns) == 0 {
		return 0
	}

	return len(rs.Columns[0].Values)
}

// IsEmpty reports whether the result has no rows
func (rs *ResultSet) IsEmpty() bool {
	return rs.RowCount() == 0
}

// ColumnNames returns the column names in result order
func (rs *ResultSet) ColumnNames() []string {
	if rs == nil {
		return nil
	}

	names := make([]string, len(rs.Columns))
	for i, col := range rs.Columns {
		names[i] = col.Name
	}

	return names
}

// Row returns the values of row i in column order
func (rs *ResultSet) Row(i int) []any {
	row := make([]any, len(rs.Columns))
	for j, col := range rs.Columns {
		row[j] = col.Values[i]
	}

	return row
}

// Column looks up a column by name
func (rs *ResultSet) Column(name string) (Column, bool) {
	if rs == nil {
		return Column{}, false
	}

	for _, col := range rs.Columns {
		if col.Name == name {
			return col, true
		}
	}

	return Column{}, false
}

// Head returns a copy restricted to the first n rows
func (rs *ResultSet) Head(n int) *ResultSet {
	if rs == nil {
		return &ResultSet{}
	}

	if n < 0 || n > rs.RowCount() {
		n = rs.RowCount()
	}

	head := &ResultSet{Columns: make([]Column, len(rs.Columns))}
	for i, col := range rs.Columns {
		head.Columns[i] = Column{
			Name:   col.Name,
			Type:   col.Type,
			Values: append([]any(nil), col.Values[:n]...),
		}
	}

	return head
}
