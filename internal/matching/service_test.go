package matching_test

import (
	"context"
	"testing"

	"foodsaver/internal/geo"
	"foodsaver/internal/matching"
	"foodsaver/internal/utils"
	"foodsaver/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister []*types.Donation

func (l staticLister) PendingDonations(context.Context) ([]*types.Donation, error) {
	return l, nil
}

func donationAt(id string, lat, lng float64) *types.Donation {
	return &types.Donation{
		ID:          id,
		Name:        "donation " + id,
		Status:      types.DonationStatusPending,
		LocationLat: lat,
		LocationLng: lng,
	}
}

func TestNearbyPending_FiltersByRadius(t *testing.T) {
	ctx := context.Background()
	ngoLoc := &types.Coordinates{Lat: 12.9716, Lng: 77.5946}

	// roughly 0 km, ~5 km, ~8 km and ~300 km from ngoLoc
	lister := staticLister{
		donationAt("here", 12.9716, 77.5946),
		donationAt("near", 13.0167, 77.5946),
		donationAt("edge", 12.9000, 77.5946),
		donationAt("far", 13.0827, 80.2707),
	}

	svc := matching.New(lister)
	matches, err := svc.NearbyPending(ctx, ngoLoc, 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Donation.ID)
		assert.True(t, m.HasDistance)
	}
	assert.Equal(t, []string{"here", "near", "edge"}, ids, "closest first, far one excluded")
}

func TestNearbyPending_BoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	ngoLoc := &types.Coordinates{Lat: 0, Lng: 0}

	donation := donationAt("boundary", 0.05, 0)
	exact := geo.DistanceKm(ngoLoc.Lat, ngoLoc.Lng, donation.LocationLat, donation.LocationLng)

	svc := matching.New(staticLister{donation})

	matches, err := svc.NearbyPending(ctx, ngoLoc, exact)
	require.NoError(t, err)
	require.Len(t, matches, 1, "distance equal to radius must be included")

	matches, err = svc.NearbyPending(ctx, ngoLoc, exact-0.001)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNearbyPending_DistanceRoundedToOneDecimal(t *testing.T) {
	ctx := context.Background()
	ngoLoc := &types.Coordinates{Lat: 12.9716, Lng: 77.5946}
	donation := donationAt("d", 13.0167, 77.5946)

	svc := matching.New(staticLister{donation})
	matches, err := svc.NearbyPending(ctx, ngoLoc, matching.DefaultRadiusKm)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	exact := geo.DistanceKm(ngoLoc.Lat, ngoLoc.Lng, donation.LocationLat, donation.LocationLng)
	got := matches[0].DistanceKm
	assert.InDelta(t, exact, got, 0.05)
	assert.Equal(t, utils.RoundFloat64(exact, 1), got)
}

func TestNearbyPending_NoLocationReturnsAllUnannotated(t *testing.T) {
	ctx := context.Background()

	lister := staticLister{
		donationAt("a", 12.9716, 77.5946),
		donationAt("b", 51.5072, -0.1276),
	}

	svc := matching.New(lister)
	matches, err := svc.NearbyPending(ctx, nil, matching.DefaultRadiusKm)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.False(t, m.HasDistance)
	}
	// store order is preserved when nothing is annotated
	assert.Equal(t, "a", matches[0].Donation.ID)
	assert.Equal(t, "b", matches[1].Donation.ID)
}

func TestNearbyPending_ZeroRadiusFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	ngoLoc := &types.Coordinates{Lat: 12.9716, Lng: 77.5946}

	// ~5 km away: inside the 10 km default
	svc := matching.New(staticLister{donationAt("near", 13.0167, 77.5946)})
	matches, err := svc.NearbyPending(ctx, ngoLoc, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
