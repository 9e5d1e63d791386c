package llm

import (
	"regexp"
	"strings"
)

var jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSONSpan returns the part of a model reply most likely to hold a JSON
// object. A ```json fenced block wins; otherwise the span from the first '{' to
// the last '}' is returned. Text with neither is returned unchanged so that the
// caller's strict parse fails on it.
func ExtractJSONSpan(text string) string {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
