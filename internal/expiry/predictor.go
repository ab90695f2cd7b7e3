// Package expiry predicts when listed food becomes unsafe to redistribute.
package expiry

import (
	"strings"
	"time"
)

// Predictor maps a food type and preparation time to an expiry time.
// Implementations must be deterministic and side-effect free so they can be
// swapped (a learned model, a rules service) without touching callers.
type Predictor interface {
	PredictExpiry(foodType string, preparedAt time.Time) time.Time
}

// RuleTable is the default Predictor: a fixed per-food-type safety duration
// added to the preparation time. Food type matching is case-insensitive;
// unrecognized types fall back to the shortest duration.
type RuleTable struct {
	rules    map[string]time.Duration
	fallback time.Duration
}

func NewRuleTable() *RuleTable {
	return &RuleTable{
		rules: map[string]time.Duration{
			"veg":     12 * time.Hour,
			"non-veg": 6 * time.Hour,
			"bakery":  48 * time.Hour,
			"fruits":  72 * time.Hour,
		},
		fallback: 6 * time.Hour,
	}
}

func (t *RuleTable) PredictExpiry(foodType string, preparedAt time.Time) time.Time {
	duration, ok := t.rules[strings.ToLower(foodType)]
	if !ok {
		duration = t.fallback
	}

	return preparedAt.Add(duration)
}
