package synth

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert SQL Data Analyst. You answer with a single SQL query and nothing else."

func dialectName(dialect string) string {
	if dialect == "" {
		return ""
	}
	return dialect + " "
}

func formatContext(schemaContext []string) string {
	if len(schemaContext) == 0 {
		return "(no schema documents found)"
	}
	return strings.Join(schemaContext, "\n\n")
}

// initialPrompt asks for a query answering question
func initialPrompt(question string, schemaContext []string, dialect string) string {
	return fmt.Sprintf(`Schema Context:
%s

Question: %s

Return ONLY valid %sSQL. No explanations.`, formatContext(schemaContext), question, dialectName(dialect))
}

// repairPrompt asks for a corrected version of a query that failed with errMsg
func repairPrompt(failedSQL, errMsg string, schemaContext []string, dialect string) string {
	return fmt.Sprintf(`The following SQL failed:
%s

Error Message:
%s

Schema Context:
%s

Fix the SQL to solve the error. Return ONLY the fixed %sSQL.`, failedSQL, errMsg, formatContext(schemaContext), dialectName(dialect))
}
