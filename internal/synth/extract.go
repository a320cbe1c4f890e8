package synth

import (
	"regexp"
	"strings"
)

// An opening fence may carry a language tag when the fence sits on its own line
var codeFence = regexp.MustCompile("```(?:[A-Za-z0-9_+-]*[ \\t]*\\r?\\n)?")

// ExtractSQL strips Markdown code fences and surrounding whitespace from a
// completion. The remaining text is returned verbatim, even when empty.
func ExtractSQL(raw string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
}
