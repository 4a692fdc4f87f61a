// Package dictionary defines the correction-rule model and the Store
// contract used by the correction pipeline.
//
// A rule maps an erroneous form to its canonical replacement, optionally
// tagged with a category used for prompt grouping. Rules are append-only:
// they are created by the learner (or by manual submission) and never
// updated in place. Two rules with the same incorrect form but different
// corrections may coexist; ListAll returns rules newest-first so the most
// recent rule wins when the applier breaks ties.
package dictionary

import (
	"context"
	"errors"
	"strings"
	"time"
)

// CategoryAutoLearned is the category assigned to rules extracted from
// user edits when the caller does not supply one.
const CategoryAutoLearned = "自動学習"

// Rule is a single stored text substitution.
type Rule struct {
	// ID is the store-assigned identifier. Zero for rules not yet persisted.
	ID int64 `json:"id,omitempty"`

	// Incorrect is the erroneous or variant form to be replaced.
	Incorrect string `json:"incorrect"`

	// Correct is the canonical replacement. Must differ from Incorrect.
	Correct string `json:"correct"`

	// Category groups rules in the proofreading prompt. Empty means
	// [CategoryAutoLearned].
	Category string `json:"category,omitempty"`

	// CreatedAt is set by the store at insertion time.
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Validate reports whether the rule is well formed: both sides non-empty
// after trimming and not identical.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Incorrect) == "" {
		return errors.New("dictionary: incorrect text must not be empty")
	}
	if strings.TrimSpace(r.Correct) == "" {
		return errors.New("dictionary: correct text must not be empty")
	}
	if strings.TrimSpace(r.Incorrect) == strings.TrimSpace(r.Correct) {
		return errors.New("dictionary: incorrect and correct must differ")
	}
	return nil
}

// Key returns the identity of the rule for deduplication purposes: the
// trimmed (incorrect, correct) pair.
func (r Rule) Key() string {
	return strings.TrimSpace(r.Incorrect) + "\x00" + strings.TrimSpace(r.Correct)
}

// Store is the persistence contract required by the correction pipeline.
// Matching at the store layer is exact and case-sensitive; fuzzy matching
// happens in the similarity matcher before anything reaches the store.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// ListAll returns every rule ordered by creation time, newest first.
	ListAll(ctx context.Context) ([]Rule, error)

	// FindByIncorrect returns all rules whose incorrect form equals text
	// exactly. An empty result is not an error.
	FindByIncorrect(ctx context.Context, text string) ([]Rule, error)

	// Search returns rules whose incorrect or correct form contains the
	// given substring, newest first. An empty query lists everything.
	Search(ctx context.Context, query string) ([]Rule, error)

	// InsertMany persists the given rules in a single atomic operation.
	// Rules whose (incorrect, correct) pair already exists are skipped
	// idempotently; the returned slice contains only the rows actually
	// inserted, with IDs and timestamps populated.
	InsertMany(ctx context.Context, rules []Rule) ([]Rule, error)
}
