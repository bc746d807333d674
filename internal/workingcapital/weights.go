package workingcapital

import (
	"math"
	"sync"

	"github.com/iwvelando/cashflow-planner/pkg/validation"
)

// Weight keys accepted by Weights.Set.
const (
	WeightLiquidity       = "liquidity"
	WeightFinancingCost   = "financing_cost"
	WeightTransactionCost = "transaction_cost"
	WeightRelationship    = "relationship"
)

var weightKeys = []string{WeightLiquidity, WeightFinancingCost, WeightTransactionCost, WeightRelationship}

// ObjectiveWeights balance the planner's competing goals. Normalized weights
// sum to 1.
type ObjectiveWeights struct {
	Liquidity       float64 `json:"liquidity" yaml:"liquidity"`
	FinancingCost   float64 `json:"financing_cost" yaml:"financing_cost"`
	TransactionCost float64 `json:"transaction_cost" yaml:"transaction_cost"`
	Relationship    float64 `json:"relationship" yaml:"relationship"`
}

// DefaultObjectiveWeights favour liquidity.
func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{Liquidity: 0.4, FinancingCost: 0.3, TransactionCost: 0.1, Relationship: 0.2}
}

// Sum adds the four weights.
func (w ObjectiveWeights) Sum() float64 {
	return w.Liquidity + w.FinancingCost + w.TransactionCost + w.Relationship
}

// Map returns the weights keyed by name.
func (w ObjectiveWeights) Map() map[string]float64 {
	return map[string]float64{
		WeightLiquidity:       w.Liquidity,
		WeightFinancingCost:   w.FinancingCost,
		WeightTransactionCost: w.TransactionCost,
		WeightRelationship:    w.Relationship,
	}
}

// Normalize scales the weights to sum to 1. Negative, non-finite, or all-zero
// weights are rejected.
func (w ObjectiveWeights) Normalize() (ObjectiveWeights, error) {
	for key, v := range w.Map() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ObjectiveWeights{}, validation.Errorf(key, "weight must be a non-negative number, got %v", v)
		}
	}
	total := w.Sum()
	if total <= 0 {
		return ObjectiveWeights{}, validation.Errorf("weights", "at least one weight must be positive")
	}
	return ObjectiveWeights{
		Liquidity:       w.Liquidity / total,
		FinancingCost:   w.FinancingCost / total,
		TransactionCost: w.TransactionCost / total,
		Relationship:    w.Relationship / total,
	}, nil
}

// WeightsFromMap requires every weight key. Other keys are ignored.
func WeightsFromMap(values map[string]float64) (ObjectiveWeights, error) {
	for _, key := range weightKeys {
		if _, ok := values[key]; !ok {
			return ObjectiveWeights{}, validation.Errorf(key, "weights must include liquidity, financing_cost, transaction_cost and relationship")
		}
	}
	return ObjectiveWeights{
		Liquidity:       values[WeightLiquidity],
		FinancingCost:   values[WeightFinancingCost],
		TransactionCost: values[WeightTransactionCost],
		Relationship:    values[WeightRelationship],
	}, nil
}

// Weights holds the planner's current objective weights.
type Weights struct {
	mu      sync.RWMutex
	current ObjectiveWeights
}

// NewWeights normalizes initial and stores it.
func NewWeights(initial ObjectiveWeights) (*Weights, error) {
	normalized, err := initial.Normalize()
	if err != nil {
		return nil, err
	}
	return &Weights{current: normalized}, nil
}

// Set replaces the weights with the normalized values. On error the current
// weights are left untouched.
func (w *Weights) Set(values map[string]float64) (ObjectiveWeights, error) {
	parsed, err := WeightsFromMap(values)
	if err != nil {
		return ObjectiveWeights{}, err
	}
	normalized, err := parsed.Normalize()
	if err != nil {
		return ObjectiveWeights{}, err
	}

	w.mu.Lock()
	w.current = normalized
	w.mu.Unlock()
	return normalized, nil
}

// Current returns a copy of the weights in effect.
func (w *Weights) Current() ObjectiveWeights {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}
