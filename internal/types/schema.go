package types

import "fmt"

// SchemaDocument is the retrievable description of a single table
type SchemaDocument struct {
	TableName   string `json:"table_name"`
	DDL         string `json:"ddl"`
	Description string `json:"description"`
}

// Text renders the document body stored in the vector store
func (d SchemaDocument) Text() string {
	return fmt.Sprintf("%s: %s\n\nDDL:\n%s", d.TableName, d.Description, d.DDL)
}

// Metadata returns the filterable attributes stored next to the document
func (d SchemaDocument) Metadata() map[string]string {
	return map[string]string{
		"table_name": d.TableName,
		"type":       "ddl",
	}
}
