package rules

import "strings"

// MatchTerm reports whether a contains b or b contains a. Inputs are
// expected to be lower-cased already. Short keywords match loosely ("ac"
// matches "vacuum"); there is no word-boundary check.
func MatchTerm(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// AnyMatch reports whether any keyword matches any term.
func AnyMatch(keywords, terms []string) bool {
	for _, kw := range keywords {
		for _, term := range terms {
			if MatchTerm(term, kw) {
				return true
			}
		}
	}
	return false
}

// Lower returns a lower-cased copy of terms.
func Lower(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}
