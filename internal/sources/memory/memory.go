package memory

import (
	"context"
	"slices"
	"sync"

	"pnl/internal/core"
)

// Store keeps definitions and facts in memory. It implements both
// sources.CategoryReader and sources.FactsProvider.
type Store struct {
	mu         sync.RWMutex
	categories map[string][]core.CategoryDefinition
	facts      []core.Fact
}

func New() *Store {
	return &Store{categories: make(map[string][]core.CategoryDefinition)}
}

func (s *Store) AddCategories(company string, defs ...core.CategoryDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[company] = append(s.categories[company], defs...)
}

func (s *Store) AddFacts(facts ...core.Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, facts...)
}

// Categories returns a copy so callers cannot mutate the stored definitions.
func (s *Store) Categories(_ context.Context, company string) ([]core.CategoryDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories[company]), nil
}

// Companies lists the companies that have definitions, sorted.
func (s *Store) Companies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.categories))
	for c := range s.categories {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Value sums the amounts of matching facts dated within the period.
func (s *Store) Value(_ context.Context, q core.FactQuery) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	for _, f := range s.facts {
		if f.Matches(q) {
			sum += f.Amount
		}
	}
	return sum, nil
}

func (s *Store) SupportsDimension() bool { return true }

// Facts returns a copy of every stored fact.
func (s *Store) Facts() []core.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.facts)
}
