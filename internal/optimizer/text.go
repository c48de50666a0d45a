package optimizer

import "strings"

// normalizeTerm canonicalizes a search term or keyword for comparison:
// lowercase, trimmed, inner whitespace collapsed to single spaces.
func normalizeTerm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// trigramSimilarity returns the Jaccard similarity of the character trigram
// sets of two normalized strings, in [0, 1]. Equal strings score 1.
func trigramSimilarity(a, b string) float64 {
	a = normalizeTerm(a)
	b = normalizeTerm(b)
	if a == b {
		return 1
	}
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for g := range ta {
		if tb[g] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func trigrams(s string) map[string]bool {
	grams := make(map[string]bool)
	padded := "  " + s + " "
	runes := []rune(padded)
	for i := 0; i+3 <= len(runes); i++ {
		grams[string(runes[i:i+3])] = true
	}
	return grams
}
