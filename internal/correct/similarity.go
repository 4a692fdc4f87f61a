package correct

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const (
	// minTokenLen is the minimum token length (in runes) considered for
	// similarity. Shorter tokens are mostly single-character particles and
	// produce noise rules.
	minTokenLen = 2

	// maxEditDistance caps the absolute number of edits between similar
	// tokens, regardless of token length.
	maxEditDistance = 3

	// editDistanceRatio bounds the edit distance relative to the longer
	// token's length.
	editDistanceRatio = 0.5
)

// AreSimilar reports whether two tokens look like the same phrase before
// and after a correction. The checks, in order:
//
//   - identical tokens are not similar (identity is not a correction)
//   - tokens made solely of whitespace/punctuation never match
//   - a token containing a digit only matches another digit-bearing token;
//     two digit-bearing tokens always match (numeric edits are always
//     worth learning)
//   - tokens shorter than two runes never match
//   - otherwise the Levenshtein distance must be at most half the longer
//     token's length, capped at three edits
func AreSimilar(a, b string) bool {
	if a == b {
		return false
	}
	if isSymbolic(a) || isSymbolic(b) {
		return false
	}

	aDigit, bDigit := containsDigit(a), containsDigit(b)
	if aDigit || bDigit {
		return aDigit && bDigit
	}

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la < minTokenLen || lb < minTokenLen {
		return false
	}

	longer := la
	if lb > longer {
		longer = lb
	}
	limit := float64(longer) * editDistanceRatio
	if limit > maxEditDistance {
		limit = maxEditDistance
	}
	return float64(matchr.Levenshtein(a, b)) <= limit
}
