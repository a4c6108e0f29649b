package quality

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sampleRunes bounds the Levenshtein input; the distance is quadratic.
const sampleRunes = 500

// sample returns the NFC-normalised, trimmed first sampleRunes runes of s.
func sample(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	r := []rune(s)
	if len(r) > sampleRunes {
		r = r[:sampleRunes]
	}
	return string(r)
}

// levenshtein returns the edit distance between two strings (rune-aware).
// Uses a space-optimized two-row DP implementation.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

// similarity returns a score in [0, 1] (1 = identical).
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}
