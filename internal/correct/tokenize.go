// Package correct implements the dictionary-driven correction pipeline:
// a deterministic rule-substitution pass over transcript text, an
// LLM-assisted proofreading pass, and a learner that extracts new
// dictionary rules from user edits.
package correct

import (
	"strings"
	"unicode"
)

// delimiters are the Japanese sentence and clause boundaries the tokenizer
// splits on. Each delimiter becomes its own token; whitespace is dropped.
const delimiters = "、。！？．，"

// Tokenize splits text into comparison units: runs of non-delimiter,
// non-whitespace runes, plus each delimiter as a standalone token.
// The empty string yields a nil slice.
func Tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case strings.ContainsRune(delimiters, r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// isSymbolic reports whether the token consists solely of whitespace and
// punctuation. Symbolic tokens never participate in similarity matching.
func isSymbolic(token string) bool {
	if token == "" {
		return true
	}
	for _, r := range token {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

// containsDigit reports whether the token contains at least one decimal digit.
func containsDigit(token string) bool {
	return strings.ContainsFunc(token, unicode.IsDigit)
}
