package correct

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/otoscribe/otoscribe/internal/dictionary"
)

// Applied describes one dictionary rule that fired during the mechanical
// pass.
type Applied struct {
	Rule  dictionary.Rule
	Count int
}

// Description renders the substitution in the form shown to users,
// e.g. `"えーと" → "あの" (1 occurrence)`.
func (a Applied) Description() string {
	noun := "occurrences"
	if a.Count == 1 {
		noun = "occurrence"
	}
	return fmt.Sprintf("%q → %q (%d %s)", a.Rule.Incorrect, a.Rule.Correct, a.Count, noun)
}

// ApplyResult is the outcome of [ApplyRules].
type ApplyResult struct {
	// Text is the input with every boundary-respecting rule match replaced.
	Text string

	// Applied lists the rules that fired at least once, in application order.
	Applied []Applied
}

// Descriptions returns the human-readable substitution summaries.
func (r ApplyResult) Descriptions() []string {
	out := make([]string, len(r.Applied))
	for i, a := range r.Applied {
		out[i] = a.Description()
	}
	return out
}

// ApplyRules deterministically rewrites text by substituting every rule's
// incorrect span with its correction.
//
// Rules are applied longest-incorrect-first so a short rule cannot fragment
// a longer rule's match region; among rules of equal length the incoming
// order is preserved, which combined with the store's newest-first listing
// means the most recent rule wins. Matches must be word-bounded: an
// occurrence flanked by an ASCII letter or digit is part of a larger
// romanised word and is left alone. Malformed rules (either side empty
// after trimming) are skipped.
func ApplyRules(text string, rules []dictionary.Rule) ApplyResult {
	ordered := make([]dictionary.Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return utf8.RuneCountInString(ordered[i].Incorrect) > utf8.RuneCountInString(ordered[j].Incorrect)
	})

	result := ApplyResult{Text: text}
	for _, rule := range ordered {
		incorrect := strings.TrimSpace(rule.Incorrect)
		correctTo := strings.TrimSpace(rule.Correct)
		if incorrect == "" || correctTo == "" {
			continue
		}
		replaced, n := replaceBounded(result.Text, incorrect, correctTo)
		if n > 0 {
			result.Text = replaced
			result.Applied = append(result.Applied, Applied{Rule: rule, Count: n})
		}
	}
	return result
}

// replaceBounded replaces every word-bounded occurrence of from with to,
// returning the rewritten string and the number of replacements. The
// search text is matched literally.
func replaceBounded(text, from, to string) (string, int) {
	var (
		sb    strings.Builder
		count int
		pos   int
	)
	for {
		idx := strings.Index(text[pos:], from)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := start + len(from)

		if boundedAt(text, start, end) {
			sb.WriteString(text[pos:start])
			sb.WriteString(to)
			count++
			pos = end
			continue
		}

		// Not a word boundary: emit up to and including the first rune of
		// the false match and keep scanning.
		_, size := utf8.DecodeRuneInString(text[start:])
		sb.WriteString(text[pos : start+size])
		pos = start + size
	}
	if count == 0 {
		return text, 0
	}
	sb.WriteString(text[pos:])
	return sb.String(), count
}

// boundedAt reports whether the span [start, end) of text sits on word
// boundaries. String edges, whitespace, punctuation, and any non-ASCII
// rune (kana, kanji) count as boundaries; only an adjacent ASCII letter or
// digit continues a word.
func boundedAt(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isASCIIWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isASCIIWordRune(r) {
			return false
		}
	}
	return true
}

// isASCIIWordRune reports whether r is an ASCII letter or digit.
func isASCIIWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
