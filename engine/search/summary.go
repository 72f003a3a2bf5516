package search

import (
	"encoding/json"
	"strings"

	"github.com/docsift/docsift/engine/domain"
)

// fallbackNote accompanies summary text that is not a JSON object.
const fallbackNote = "summary was not valid JSON; raw text returned instead"

// ParseSummary decodes summary text produced under StructuredPreamble.
// A JSON object is returned as-is; any other text is wrapped in a
// domain.SummaryFallback. Blank text yields nil. ok is false for the
// fallback case.
func ParseSummary(text string) (summary any, ok bool) {
	if strings.TrimSpace(text) == "" {
		return nil, true
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(stripFences(text)), &obj); err != nil || obj == nil {
		return domain.SummaryFallback{Note: fallbackNote, RawText: text}, false
	}
	return obj, true
}

// stripFences removes a surrounding markdown code fence and its language
// tag, e.g. ```json ... ```.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "```")
	if !ok {
		return s
	}
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[i+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}
