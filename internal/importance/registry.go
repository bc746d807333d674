// Package importance keeps per-counterparty importance scores. A Registry is
// shared by every optimize call on one optimizer; each call reads a Snapshot so
// a concurrent Set never shows up half-way through a scoring pass.
package importance

import (
	"sync"

	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/mathutil"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
)

// Default is the score for any entity without an explicit value.
const Default = constants.DefaultImportance

// Registry maps entity ids to scores in [0,1].
type Registry struct {
	mu     sync.RWMutex
	scores map[string]float64
}

// NewRegistry returns a registry seeded with initial, which is validated in
// full before anything is stored.
func NewRegistry(initial map[string]float64) (*Registry, error) {
	for id, score := range initial {
		if err := check(id, score); err != nil {
			return nil, err
		}
	}
	r := &Registry{scores: make(map[string]float64, len(initial))}
	for id, score := range initial {
		r.scores[id] = score
	}
	return r, nil
}

// Set stores score for id. Scores outside [0,1] are rejected and leave the
// registry untouched.
func (r *Registry) Set(id string, score float64) error {
	if err := check(id, score); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scores == nil {
		r.scores = make(map[string]float64)
	}
	r.scores[id] = score
	return nil
}

// Get returns the score for id, or Default.
func (r *Registry) Get(id string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if score, ok := r.scores[id]; ok {
		return score
	}
	return Default
}

// Snapshot copies the current scores.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := make(map[string]float64, len(r.scores))
	for id, score := range r.scores {
		copied[id] = score
	}
	return Snapshot{scores: copied}
}

// Snapshot is an immutable view of a Registry.
type Snapshot struct {
	scores map[string]float64
}

// Get returns the score for id, or Default. An empty id (unresolved entity)
// always gets Default.
func (s Snapshot) Get(id string) float64 {
	if score, ok := s.scores[id]; ok && id != "" {
		return score
	}
	return Default
}

// Len is the number of explicitly scored entities.
func (s Snapshot) Len() int {
	return len(s.scores)
}

func check(id string, score float64) error {
	if id == "" {
		return validation.Errorf("id", "entity id is required")
	}
	if !mathutil.InUnitInterval(score) {
		return validation.Errorf("importance", "importance score must be between 0 and 1, got %v", score)
	}
	return nil
}
