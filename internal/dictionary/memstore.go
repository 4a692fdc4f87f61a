package dictionary

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for development and testing. The zero value is ready to use.
type MemStore struct {
	mu     sync.RWMutex
	rules  []Rule
	nextID int64
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{}
}

// ListAll implements [Store.ListAll].
func (s *MemStore) ListAll(ctx context.Context) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(func(Rule) bool { return true }), nil
}

// FindByIncorrect implements [Store.FindByIncorrect].
func (s *MemStore) FindByIncorrect(ctx context.Context, text string) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(func(r Rule) bool { return r.Incorrect == text }), nil
}

// Search implements [Store.Search].
func (s *MemStore) Search(ctx context.Context, query string) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(func(r Rule) bool {
		return query == "" ||
			strings.Contains(r.Incorrect, query) ||
			strings.Contains(r.Correct, query)
	}), nil
}

// InsertMany implements [Store.InsertMany]. Existing (incorrect, correct)
// pairs are skipped; only net-new rules appear in the returned slice.
func (s *MemStore) InsertMany(ctx context.Context, rules []Rule) ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.rules))
	for _, r := range s.rules {
		existing[r.Key()] = struct{}{}
	}

	now := time.Now().UTC()
	var inserted []Rule
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := existing[r.Key()]; dup {
			continue
		}
		s.nextID++
		r.ID = s.nextID
		r.CreatedAt = now
		if r.Category == "" {
			r.Category = CategoryAutoLearned
		}
		s.rules = append(s.rules, r)
		existing[r.Key()] = struct{}{}
		inserted = append(inserted, r)
	}
	return inserted, nil
}

// snapshotLocked copies the matching rules sorted newest-first. Insertion
// order breaks ties so rules added later in the same instant still sort
// ahead of earlier ones.
func (s *MemStore) snapshotLocked(match func(Rule) bool) []Rule {
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if match(r) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Rule) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out
}
