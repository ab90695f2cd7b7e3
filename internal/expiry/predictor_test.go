package expiry_test

import (
	"testing"
	"time"

	"foodsaver/internal/expiry"

	"github.com/stretchr/testify/assert"
)

func TestRuleTable_PredictExpiry(t *testing.T) {
	preparedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	table := expiry.NewRuleTable()

	tests := []struct {
		foodType  string
		wantHours time.Duration
	}{
		{"veg", 12 * time.Hour},
		{"non-veg", 6 * time.Hour},
		{"bakery", 48 * time.Hour},
		{"fruits", 72 * time.Hour},
		{"VEG", 12 * time.Hour},
		{"Non-Veg", 6 * time.Hour},
		{"FRUITS", 72 * time.Hour},
		{"sushi", 6 * time.Hour},
		{"", 6 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.foodType, func(t *testing.T) {
			got := table.PredictExpiry(tt.foodType, preparedAt)
			assert.Equal(t, preparedAt.Add(tt.wantHours), got)
		})
	}
}

func TestRuleTable_ExpiryNeverBeforePreparation(t *testing.T) {
	preparedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	table := expiry.NewRuleTable()

	for _, foodType := range []string{"veg", "non-veg", "bakery", "fruits", "unknown"} {
		got := table.PredictExpiry(foodType, preparedAt)
		assert.False(t, got.Before(preparedAt), "expiry for %q precedes preparation", foodType)
	}
}
