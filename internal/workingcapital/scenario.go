// Package workingcapital simulates the day-by-day cash balance under a
// planning scenario and produces planning-level AP and AR recommendations.
package workingcapital

import (
	"strings"

	"github.com/iwvelando/cashflow-planner/pkg/validation"
)

// Scenario names a planning stance.
type Scenario string

// Scenarios.
const (
	ScenarioBase         Scenario = "base"
	ScenarioConservative Scenario = "conservative"
	ScenarioAggressive   Scenario = "aggressive"
)

// ParseScenario maps an empty string to ScenarioBase.
func ParseScenario(value string) (Scenario, error) {
	switch s := Scenario(strings.ToLower(strings.TrimSpace(value))); s {
	case "":
		return ScenarioBase, nil
	case ScenarioBase, ScenarioConservative, ScenarioAggressive:
		return s, nil
	}
	return "", validation.Errorf("scenario", "scenario must be base, conservative or aggressive, got %q", value)
}

// Policy is how a scenario bends the forecast. ARAdjustment is the share of
// expected inflow that arrives, APAdjustment the share of outflow paid, and
// BufferMultiplier scales the configured minimum cash buffer.
type Policy struct {
	ARAdjustment     float64 `json:"ar_adjustment" yaml:"ar_adjustment"`
	APAdjustment     float64 `json:"ap_adjustment" yaml:"ap_adjustment"`
	BufferMultiplier float64 `json:"buffer_multiplier" yaml:"buffer_multiplier"`
}

// Policy returns the adjustments for the scenario. Unknown values behave like
// ScenarioBase.
func (s Scenario) Policy() Policy {
	switch s {
	case ScenarioConservative:
		return Policy{ARAdjustment: 0.90, APAdjustment: 1.00, BufferMultiplier: 1.5}
	case ScenarioAggressive:
		return Policy{ARAdjustment: 1.00, APAdjustment: 0.80, BufferMultiplier: 0.7}
	default:
		return Policy{ARAdjustment: 0.95, APAdjustment: 0.95, BufferMultiplier: 1}
	}
}

// Buffer scales base by the scenario multiplier. The base is never modified,
// so repeated runs of the same scenario see the same buffer.
func (p Policy) Buffer(base float64) float64 {
	return base * p.BufferMultiplier
}
