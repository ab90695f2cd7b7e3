package geo_test

import (
	"testing"

	"foodsaver/internal/geo"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_SamePoint(t *testing.T) {
	assert.Zero(t, geo.DistanceKm(12.9716, 77.5946, 12.9716, 77.5946))
}

func TestDistanceKm_Symmetric(t *testing.T) {
	d1 := geo.DistanceKm(12.9716, 77.5946, 13.0827, 80.2707)
	d2 := geo.DistanceKm(13.0827, 80.2707, 12.9716, 77.5946)
	assert.Equal(t, d1, d2)
}

func TestDistanceKm_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
	}{
		{
			name: "bangalore to chennai",
			lat1: 12.9716, lon1: 77.5946,
			lat2: 13.0827, lon2: 80.2707,
			wantKm: 290.2,
		},
		{
			name: "one degree of latitude at the equator",
			lat1: 0, lon1: 0,
			lat2: 1, lon2: 0,
			wantKm: 111.2,
		},
		{
			name: "antipodal points",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 180,
			wantKm: 20015.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geo.DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.wantKm, got, 1.0)
		})
	}
}
