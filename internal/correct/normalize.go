package correct

import (
	"regexp"
	"strings"
)

var (
	reBlankRuns   = regexp.MustCompile(`\n+`)
	reSpaceRuns   = regexp.MustCompile(`[ 　]+`)
	reSpaceAfter  = regexp.MustCompile(`([。！？、]) `)
	reSentenceEnd = regexp.MustCompile(`([。！？])([^」』）)]|$)`)
	reClauseComma = regexp.MustCompile(`(、)([^」』）)])`)
)

// Normalize tidies transcript text for display: collapses repeated blank
// lines and space runs, removes stray spaces after punctuation, breaks the
// text into lines after sentence-ending punctuation, and pads clause
// commas with a space. Punctuation directly before a closing bracket is
// left untouched.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out := strings.TrimSpace(text)
	out = reBlankRuns.ReplaceAllString(out, "\n")
	out = reSpaceRuns.ReplaceAllString(out, " ")
	out = reSpaceAfter.ReplaceAllString(out, "$1")
	out = reSentenceEnd.ReplaceAllString(out, "$1\n$2")
	out = reClauseComma.ReplaceAllString(out, "$1 $2")
	return strings.TrimSpace(out)
}
