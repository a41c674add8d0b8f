// Package match provides fuzzy string matching for book titles and authors.
// Detected titles come from OCR and user typing, so every comparison in the
// system that tolerates spelling variation goes through this package.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Threshold is the caller-side acceptance bar for BestMatch results.
// Candidates scoring at or below it are discarded.
const Threshold = 0.6

// Similarity returns a value in [0,1] measuring how alike two strings are:
// (maxLen - levenshtein(a,b)) / maxLen, computed over runes.
// Two empty strings are identical (1.0).
func Similarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}

	dist := levenshtein(ra, rb)
	return float64(maxLen-dist) / float64(maxLen)
}

// BestMatch returns the candidate whose title is most similar to target,
// comparing case-insensitively. Ties resolve to the first maximal candidate.
// ok is false for an empty candidate list. Callers apply Threshold.
func BestMatch[T any](target string, candidates []T, title func(T) string) (best T, score float64, ok bool) {
	if len(candidates) == 0 {
		return best, 0, false
	}

	lowered := strings.ToLower(target)
	best = candidates[0]
	score = Similarity(lowered, strings.ToLower(title(candidates[0])))
	for _, c := range candidates[1:] {
		if s := Similarity(lowered, strings.ToLower(title(c))); s > score {
			best = c
			score = s
		}
	}
	return best, score, true
}

// foldTransformer strips combining marks after NFD decomposition, so
// "Café" and "Cafe" normalize identically.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, folds diacritics, strips punctuation, and
// collapses whitespace runs to single spaces. Used for already-read
// matching and favorite-title comparison where "Don't Panic!" and
// "dont panic" must agree.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// ContainsEither reports whether either normalized string contains the
// other. Both inputs must already be normalized; empty strings never match.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// levenshtein computes edit distance with the two-row dynamic program.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
