package cleaner

import "unicode/utf8"

// EstimateTokens approximates the token count of text as runes / 3, a
// middle ground between English (~4 chars/token) and CJK (~1.5). Used
// for prompt-size logging only.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	if est := n / 3; est > 0 {
		return est
	}
	return 1
}
