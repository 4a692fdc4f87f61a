package correct

import (
	"strings"

	"github.com/otoscribe/otoscribe/internal/dictionary"
)

// FormatRules renders the active dictionary as a natural-language
// instruction block for the proofreading prompt. Rules are grouped under
// their category heading (uncategorised rules fall into the auto-learned
// bucket) and each entry demands an exact-match conversion so the model
// does not apply a rule inside unrelated words.
//
// Returns the empty string when no usable rules exist.
func FormatRules(rules []dictionary.Rule) string {
	grouped := make(map[string][]dictionary.Rule)
	var order []string
	for _, r := range rules {
		if strings.TrimSpace(r.Incorrect) == "" || strings.TrimSpace(r.Correct) == "" {
			continue
		}
		cat := r.Category
		if cat == "" {
			cat = dictionary.CategoryAutoLearned
		}
		if _, seen := grouped[cat]; !seen {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], r)
	}
	if len(order) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("以下の変換辞書に従って用語を修正してください。\n")
	for _, cat := range order {
		sb.WriteString("\n【")
		sb.WriteString(cat)
		sb.WriteString("】\n")
		for _, r := range grouped[cat] {
			sb.WriteString("- 「")
			sb.WriteString(r.Incorrect)
			sb.WriteString("」は必ず「")
			sb.WriteString(r.Correct)
			sb.WriteString("」に変換する（完全に一致する箇所のみ。単語の一部には適用しない）\n")
		}
	}
	return sb.String()
}
