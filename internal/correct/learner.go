package correct

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otoscribe/otoscribe/internal/dictionary"
)

// similarityWindow is how far (in token positions) the learner looks
// around an original token for its corrected counterpart. Keeping the
// search local prevents accidental long-range pairings when the edit
// shifted token positions.
const similarityWindow = 3

// DiffPair is one before/after text pair from a manual user edit.
type DiffPair struct {
	// Before is the text as it was shown to the user.
	Before string `json:"original"`

	// After is the text as the user left it.
	After string `json:"edited"`

	// Category optionally overrides the auto-learned category for rules
	// extracted from this pair.
	Category string `json:"category,omitempty"`
}

// LearnResult reports what a [Learner.Learn] call persisted.
type LearnResult struct {
	// Success is always true on a non-error result; failures are reported
	// through the error body instead.
	Success bool `json:"success"`

	// SavedCount is the number of net-new rules written.
	SavedCount int `json:"updatedEntries"`

	// SavedRules are the rules written, with store IDs and timestamps.
	SavedRules []dictionary.Rule `json:"updates"`
}

// Learner extracts new dictionary rules from user edits and folds them
// back into the store. Batch learning deduplicates silently; the manual
// single-rule path is strict and reports conflicts. It is stateless and
// safe for concurrent use.
type Learner struct {
	store dictionary.Store
}

// NewLearner constructs a [Learner] over the given store.
func NewLearner(store dictionary.Store) *Learner {
	return &Learner{store: store}
}

// Learn extracts candidate rules from each before/after pair, removes
// duplicates within the batch and against the store, and persists the
// rest with the auto-learned category (unless a pair carries its own).
//
// Candidates already present in the store are skipped silently — a user
// re-submitting a known correction is routine, not an error. A rule
// learned concurrently by another request may slip past the existence
// check; the store's insert is idempotent on (incorrect, correct), so the
// race resolves to a single row.
func (l *Learner) Learn(ctx context.Context, pairs []DiffPair) (*LearnResult, error) {
	if len(pairs) == 0 {
		return nil, newError(KindValidation, "変更内容が空です")
	}

	seen := make(map[string]struct{})
	var candidates []dictionary.Rule
	for i, pair := range pairs {
		if strings.TrimSpace(pair.Before) == "" || strings.TrimSpace(pair.After) == "" {
			return nil, newError(KindValidation,
				fmt.Sprintf("changes[%d]: 変更前と変更後のテキストが必要です", i))
		}
		for _, r := range ExtractRules(pair.Before, pair.After) {
			r.Category = pair.Category
			if _, dup := seen[r.Key()]; dup {
				continue
			}
			seen[r.Key()] = struct{}{}
			candidates = append(candidates, r)
		}
	}

	novel, err := l.filterKnown(ctx, candidates)
	if err != nil {
		return nil, err
	}

	saved, err := l.store.InsertMany(ctx, novel)
	if err != nil {
		return nil, wrapError(KindStorage, "辞書の更新に失敗しました", err)
	}

	slog.Info("dictionary learning complete",
		"pairs", len(pairs), "candidates", len(candidates), "saved", len(saved))

	return &LearnResult{Success: true, SavedCount: len(saved), SavedRules: saved}, nil
}

// AddRule persists a single manually submitted rule. Unlike the batch
// path, duplicates are a conflict error carrying the existing entry, so
// the editor UI can show the user what collided.
func (l *Learner) AddRule(ctx context.Context, rule dictionary.Rule) (dictionary.Rule, error) {
	if err := rule.Validate(); err != nil {
		return dictionary.Rule{}, wrapError(KindValidation, "変換前のテキストと変換後のテキストが必要です", err)
	}

	existing, err := l.store.FindByIncorrect(ctx, strings.TrimSpace(rule.Incorrect))
	if err != nil {
		return dictionary.Rule{}, wrapError(KindStorage, "辞書の読み込みに失敗しました", err)
	}
	for _, e := range existing {
		if e.Key() == rule.Key() {
			conflict := e
			return dictionary.Rule{}, &Error{
				Kind:     KindConflict,
				Message:  "同じ変換ルールが既に存在します",
				Conflict: &conflict,
			}
		}
	}

	saved, err := l.store.InsertMany(ctx, []dictionary.Rule{rule})
	if err != nil {
		return dictionary.Rule{}, wrapError(KindStorage, "辞書の更新に失敗しました", err)
	}
	if len(saved) == 0 {
		// Lost an insert race; treat like the pre-check conflict.
		return dictionary.Rule{}, newError(KindConflict, "同じ変換ルールが既に存在します")
	}
	return saved[0], nil
}

// filterKnown drops candidates whose (incorrect, correct) pair already
// exists in the store.
func (l *Learner) filterKnown(ctx context.Context, candidates []dictionary.Rule) ([]dictionary.Rule, error) {
	var novel []dictionary.Rule
	for _, c := range candidates {
		existing, err := l.store.FindByIncorrect(ctx, strings.TrimSpace(c.Incorrect))
		if err != nil {
			return nil, wrapError(KindStorage, "辞書の読み込みに失敗しました", err)
		}
		known := false
		for _, e := range existing {
			if e.Key() == c.Key() {
				known = true
				break
			}
		}
		if !known {
			novel = append(novel, c)
		}
	}
	return novel, nil
}

// ExtractRules tokenizes both sides of an edit and pairs each original
// token with the most plausible corrected token nearby. A pair that is a
// single token on each side becomes a rule directly. Otherwise the search
// is limited to a window of ±[similarityWindow] positions around the
// original token's index; the first similar token within the window wins.
func ExtractRules(before, after string) []dictionary.Rule {
	beforeTokens := Tokenize(before)
	afterTokens := Tokenize(after)

	// An edit whose sides are each a single token already names the rule;
	// the window search and its similarity gate only apply when the change
	// has to be located inside longer text.
	if len(beforeTokens) == 1 && len(afterTokens) == 1 {
		orig, edited := beforeTokens[0], afterTokens[0]
		if orig == edited || isSymbolic(orig) || isSymbolic(edited) {
			return nil
		}
		return []dictionary.Rule{{Incorrect: orig, Correct: edited}}
	}

	seen := make(map[string]struct{})
	var rules []dictionary.Rule

	for i, orig := range beforeTokens {
		if isSymbolic(orig) {
			continue
		}

		lo := max(0, i-similarityWindow)
		hi := min(len(afterTokens), i+similarityWindow+1)
		for j := lo; j < hi; j++ {
			edited := afterTokens[j]
			if !AreSimilar(orig, edited) {
				continue
			}
			key := orig + "\x00" + edited
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rules = append(rules, dictionary.Rule{Incorrect: orig, Correct: edited})
			break
		}
	}
	return rules
}
