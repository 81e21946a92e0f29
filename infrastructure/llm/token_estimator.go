package llm

// charsPerToken is the rough character-to-token ratio used when a
// provider response omits usage counts.
const charsPerToken = 4

// EstimateTokens approximates the token count of text. Providers fall
// back to this when the API response carries no usage metadata; it exists
// for accounting, not billing accuracy.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
