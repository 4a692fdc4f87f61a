package correct_test

import (
	"context"
	"errors"
	"testing"

	"github.com/otoscribe/otoscribe/internal/correct"
	"github.com/otoscribe/otoscribe/internal/dictionary"
)

func TestExtractRules_PairsSimilarTokens(t *testing.T) {
	t.Parallel()

	rules := correct.ExtractRules("えーと、今日は晴れです", "ええと、今日は晴れです")

	if len(rules) != 1 {
		t.Fatalf("rules = %v, want 1 entry", rules)
	}
	if rules[0].Incorrect != "えーと" || rules[0].Correct != "ええと" {
		t.Errorf("rule = %q → %q, want えーと → ええと", rules[0].Incorrect, rules[0].Correct)
	}
}

func TestExtractRules_IdenticalTokensIgnored(t *testing.T) {
	t.Parallel()

	if rules := correct.ExtractRules("同じ文です。", "同じ文です。"); len(rules) != 0 {
		t.Errorf("rules = %v, want none for identical texts", rules)
	}
}

func TestExtractRules_WindowLimitsSearch(t *testing.T) {
	t.Parallel()

	// The corrected token sits four positions away; the window extends
	// three, so no pairing happens.
	if rules := correct.ExtractRules("こんにちわ", "ア イ ウ エ こんにちは"); len(rules) != 0 {
		t.Errorf("rules = %v, want none beyond the window", rules)
	}

	// Three positions away is still inside the window.
	rules := correct.ExtractRules("こんにちわ", "ア イ ウ こんにちは")
	if len(rules) != 1 || rules[0].Correct != "こんにちは" {
		t.Errorf("rules = %v, want one pairing at window edge", rules)
	}
}

func TestExtractRules_SingleTokenPairIsDirectRule(t *testing.T) {
	t.Parallel()

	// A one-token edit names the rule itself, even below the length the
	// similarity gate would accept.
	rules := correct.ExtractRules("あ", "い")
	if len(rules) != 1 || rules[0].Incorrect != "あ" || rules[0].Correct != "い" {
		t.Fatalf("rules = %v, want single あ → い rule", rules)
	}

	if rules := correct.ExtractRules("あ", "あ"); len(rules) != 0 {
		t.Errorf("rules = %v, want none for identical tokens", rules)
	}
	if rules := correct.ExtractRules("、", "。"); len(rules) != 0 {
		t.Errorf("rules = %v, want none for punctuation", rules)
	}
}

func TestExtractRules_DeduplicatesWithinPair(t *testing.T) {
	t.Parallel()

	rules := correct.ExtractRules("えーと、えーと", "ええと、ええと")
	if len(rules) != 1 {
		t.Errorf("rules = %v, want single deduplicated rule", rules)
	}
}

func TestLearn_EmptyChangesIsValidationError(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(dictionary.NewMemStore())

	_, err := l.Learn(context.Background(), nil)
	if kind := correct.KindOf(err); kind != correct.KindValidation {
		t.Errorf("kind = %v, want KindValidation", kind)
	}
}

func TestLearn_PairWithEmptySideIsValidationError(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(dictionary.NewMemStore())

	_, err := l.Learn(context.Background(), []correct.DiffPair{
		{Before: "テキスト", After: "  "},
	})
	if kind := correct.KindOf(err); kind != correct.KindValidation {
		t.Errorf("kind = %v, want KindValidation", kind)
	}
}

func TestLearn_SavesExtractedRules(t *testing.T) {
	t.Parallel()

	store := dictionary.NewMemStore()
	l := correct.NewLearner(store)

	result, err := l.Learn(context.Background(), []correct.DiffPair{
		{Before: "えーと、今日は晴れ", After: "ええと、今日は晴れ"},
	})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if result.SavedCount != 1 {
		t.Errorf("SavedCount = %d, want 1", result.SavedCount)
	}
	saved := result.SavedRules[0]
	if saved.ID == 0 {
		t.Error("saved rule has no ID")
	}
	if saved.Category != dictionary.CategoryAutoLearned {
		t.Errorf("Category = %q, want %q", saved.Category, dictionary.CategoryAutoLearned)
	}
}

func TestLearn_CategoryOverride(t *testing.T) {
	t.Parallel()

	store := dictionary.NewMemStore()
	l := correct.NewLearner(store)

	result, err := l.Learn(context.Background(), []correct.DiffPair{
		{Before: "クバネテス", After: "クバネティス", Category: "専門用語"},
	})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if result.SavedCount != 1 || result.SavedRules[0].Category != "専門用語" {
		t.Errorf("SavedRules = %+v, want category 専門用語", result.SavedRules)
	}
}

func TestLearn_DeduplicatesAcrossPairs(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(dictionary.NewMemStore())

	result, err := l.Learn(context.Background(), []correct.DiffPair{
		{Before: "えーとです", After: "ええとです"},
		{Before: "えーとです", After: "ええとです"},
	})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if result.SavedCount != 1 {
		t.Errorf("SavedCount = %d, want 1 after batch dedup", result.SavedCount)
	}
}

func TestLearn_SingleCharacterPairSavedOnce(t *testing.T) {
	t.Parallel()

	store := dictionary.NewMemStore()
	l := correct.NewLearner(store)

	result, err := l.Learn(context.Background(), []correct.DiffPair{
		{Before: "あ", After: "い"},
		{Before: "あ", After: "い"},
	})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if result.SavedCount != 1 {
		t.Fatalf("SavedCount = %d, want exactly 1", result.SavedCount)
	}
	if r := result.SavedRules[0]; r.Incorrect != "あ" || r.Correct != "い" {
		t.Errorf("saved = %q → %q, want あ → い", r.Incorrect, r.Correct)
	}
}

func TestLearn_ResultReportsSuccess(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(dictionary.NewMemStore())

	result, err := l.Learn(context.Background(), []correct.DiffPair{
		{Before: "えーとです", After: "ええとです"},
	})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if !result.Success {
		t.Error("Success = false, want true on a completed learn")
	}
}

func TestLearn_KnownRulesSkippedSilently(t *testing.T) {
	t.Parallel()

	store := dictionary.NewMemStore()
	l := correct.NewLearner(store)
	pairs := []correct.DiffPair{{Before: "えーとです", After: "ええとです"}}

	if _, err := l.Learn(context.Background(), pairs); err != nil {
		t.Fatalf("first Learn: %v", err)
	}

	result, err := l.Learn(context.Background(), pairs)
	if err != nil {
		t.Fatalf("second Learn: %v", err)
	}
	if result.SavedCount != 0 {
		t.Errorf("SavedCount = %d, want 0 for known rules", result.SavedCount)
	}

	all, _ := store.ListAll(context.Background())
	if len(all) != 1 {
		t.Errorf("store has %d rules, want 1", len(all))
	}
}

func TestLearn_StoreFailureIsStorageError(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(&failStore{err: errors.New("down")})

	_, err := l.Learn(context.Background(), []correct.DiffPair{
		{Before: "えーとです", After: "ええとです"},
	})
	if kind := correct.KindOf(err); kind != correct.KindStorage {
		t.Errorf("kind = %v, want KindStorage", kind)
	}
}

func TestAddRule_SavesRule(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(dictionary.NewMemStore())

	saved, err := l.AddRule(context.Background(), dictionary.Rule{
		Incorrect: "ジーピーティー", Correct: "GPT", Category: "専門用語",
	})
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	if saved.ID == 0 || saved.Category != "専門用語" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestAddRule_InvalidRuleIsValidationError(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(dictionary.NewMemStore())

	_, err := l.AddRule(context.Background(), dictionary.Rule{Incorrect: "x", Correct: ""})
	if kind := correct.KindOf(err); kind != correct.KindValidation {
		t.Errorf("kind = %v, want KindValidation", kind)
	}

	_, err = l.AddRule(context.Background(), dictionary.Rule{Incorrect: "x", Correct: "x"})
	if kind := correct.KindOf(err); kind != correct.KindValidation {
		t.Errorf("kind = %v, want KindValidation for identical sides", kind)
	}
}

func TestAddRule_DuplicateIsConflictWithExistingEntry(t *testing.T) {
	t.Parallel()

	l := correct.NewLearner(dictionary.NewMemStore())
	rule := dictionary.Rule{Incorrect: "えーと", Correct: "あの"}

	if _, err := l.AddRule(context.Background(), rule); err != nil {
		t.Fatalf("first AddRule: %v", err)
	}

	_, err := l.AddRule(context.Background(), rule)
	var cerr *correct.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *correct.Error", err)
	}
	if cerr.Kind != correct.KindConflict {
		t.Errorf("kind = %v, want KindConflict", cerr.Kind)
	}
	if cerr.Conflict == nil || cerr.Conflict.Incorrect != "えーと" {
		t.Errorf("Conflict = %+v, want the existing entry attached", cerr.Conflict)
	}
}

func TestAddRule_SameIncorrectDifferentCorrectCoexist(t *testing.T) {
	t.Parallel()

	store := dictionary.NewMemStore()
	l := correct.NewLearner(store)

	if _, err := l.AddRule(context.Background(), dictionary.Rule{Incorrect: "えーと", Correct: "あの"}); err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	if _, err := l.AddRule(context.Background(), dictionary.Rule{Incorrect: "えーと", Correct: "その"}); err != nil {
		t.Fatalf("AddRule with different correction: %v", err)
	}

	found, _ := store.FindByIncorrect(context.Background(), "えーと")
	if len(found) != 2 {
		t.Errorf("found %d rules, want 2 coexisting", len(found))
	}
}
