package indexer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kyleking/askdb/internal/types"
)

var createTable = regexp.MustCompile(`(?i)create\s+table`)

// ParseSkip is a DDL fragment that could not be turned into a schema document
type ParseSkip struct {
	Fragment string `json:"fragment"`
	Reason   string `json:"reason"`
}

// FragmentResult holds exactly one of Document and Skip
type FragmentResult struct {
	Document *types.SchemaDocument
	Skip     *ParseSkip
}

// SplitDDL splits a DDL dump into one result per CREATE TABLE statement.
// Documents carry no description; the caller attaches one.
func SplitDDL(raw string) []FragmentResult {
	matches := createTable.FindAllStringIndex(raw, -1)
	results := make([]FragmentResult, 0, len(matches)+1)

	start := len(raw)
	if len(matches) > 0 {
		start = matches[0][0]
	}
	if lead := strings.TrimSpace(raw[:start]); lead != "" {
		results = append(results, FragmentResult{Skip: &ParseSkip{Fragment: lead, Reason: "no CREATE TABLE keyword"}})
	}

	for i, m := range matches {
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		if strings.TrimSpace(raw[m[1]:end]) == "" {
			results = append(results, FragmentResult{Skip: &ParseSkip{
				Fragment: strings.TrimSpace(raw[m[0]:end]),
				Reason:   "empty table definition",
			}})
			continue
		}

		results = append(results, parseFragment(raw[m[0]:m[1]], raw[m[1]:end]))
	}

	return results
}

func parseFragment(keyword, body string) FragmentResult {
	ddl := strings.TrimSpace(keyword + body)

	header, _, found := strings.Cut(body, "(")
	if !found {
		return FragmentResult{Skip: &ParseSkip{Fragment: ddl, Reason: "missing column list"}}
	}

	name := tableName(header)
	if name == "" {
		return FragmentResult{Skip: &ParseSkip{Fragment: ddl, Reason: "missing table name"}}
	}

	return FragmentResult{Document: &types.SchemaDocument{TableName: name, DDL: ddl}}
}

// tableName returns the last identifier before the column list, without
// quoting, schema qualifiers or an IF NOT EXISTS clause
func tableName(header string) string {
	tokens := identifierFields(header)

	if len(tokens) >= 3 && strings.EqualFold(tokens[0], "if") &&
		strings.EqualFold(tokens[1], "not") && strings.EqualFold(tokens[2], "exists") {
		tokens = tokens[3:]
	}

	for i, tok := range tokens {
		if strings.EqualFold(tok, "as") {
			tokens = tokens[:i]
			break
		}
	}

	if len(tokens) == 0 {
		return ""
	}

	parts := splitQuoted(tokens[len(tokens)-1], func(r rune) bool { return r == '.' })

	return strings.Trim(parts[len(parts)-1], "\"`[]")
}

// identifierFields splits s on whitespace that is not inside a quoted
// identifier
func identifierFields(s string) []string {
	var fields []string
	for _, f := range splitQuoted(s, unicode.IsSpace) {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// splitQuoted splits s at every rune matching sep outside "..", `..` or [..]
func splitQuoted(s string, sep func(rune) bool) []string {
	var (
		parts  []string
		start  int
		closer rune
	)

	for i, r := range s {
		switch {
		case closer != 0:
			if r == closer {
				closer = 0
			}
		case r == '"' || r == '`':
			closer = r
		case r == '[':
			closer = ']'
		case sep(r):
			parts = append(parts, s[start:i])
			start = i + utf8.RuneLen(r)
		}
	}

	return append(parts, s[start:])
}
