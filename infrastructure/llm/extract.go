package llm

import "strings"

// textSource exposes the text-bearing shapes a provider response can take.
// Providers wrap their SDK response types in a small adapter so extraction
// stays uniform: a single flattened text field is preferred, otherwise the
// nested fragments are concatenated in their original order.
type textSource interface {
	// FlatText returns the single flattened text field, if the response
	// carries one.
	FlatText() (string, bool)

	// Fragments returns every nested text fragment in original order.
	Fragments() []string
}

// extractText pulls all human-readable text out of a response shape.
func extractText(src textSource) string {
	if text, ok := src.FlatText(); ok && text != "" {
		return text
	}

	var parts []string
	for _, fragment := range src.Fragments() {
		if fragment != "" {
			parts = append(parts, fragment)
		}
	}
	return strings.Join(parts, "\n")
}
