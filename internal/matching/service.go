// Package matching surfaces pending donations to NGOs by proximity.
package matching

import (
	"context"
	"fmt"
	"sort"

	"foodsaver/internal/geo"
	"foodsaver/internal/utils"
	"foodsaver/pkg/types"
)

// DefaultRadiusKm is the matching radius used when the caller passes none.
const DefaultRadiusKm = 10

type DonationLister interface {
	PendingDonations(ctx context.Context) ([]*types.Donation, error)
}

// Match is a pending donation annotated with its distance from the NGO.
// HasDistance is false when the NGO never reported a location, in which case
// DistanceKm is meaningless.
type Match struct {
	Donation    *types.Donation
	DistanceKm  float64
	HasDistance bool
}

type Service struct {
	donations DonationLister
}

func New(donations DonationLister) *Service {
	return &Service{donations: donations}
}

// NearbyPending returns pending donations within radiusKm of loc, closest
// first, each annotated with its distance rounded to one decimal. The radius
// boundary is inclusive and the filter uses the unrounded distance. When loc
// is nil every pending donation is returned unannotated, in store order.
func (s *Service) NearbyPending(ctx context.Context, loc *types.Coordinates, radiusKm float64) ([]Match, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	donations, err := s.donations.PendingDonations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending donations: %w", err)
	}

	matches := make([]Match, 0, len(donations))

	if loc == nil {
		for _, donation := range donations {
			matches = append(matches, Match{Donation: donation})
		}
		return matches, nil
	}

	for _, donation := range donations {
		dist := geo.DistanceKm(loc.Lat, loc.Lng, donation.LocationLat, donation.LocationLng)
		if dist > radiusKm {
			continue
		}

		matches = append(matches, Match{
			Donation:    donation,
			DistanceKm:  utils.RoundFloat64(dist, 1),
			HasDistance: true,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})

	return matches, nil
}
