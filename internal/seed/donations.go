package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"foodsaver/internal/expiry"
	"foodsaver/internal/store"
	"foodsaver/internal/utils"
	"foodsaver/pkg/types"
)

var fakeDonationNames = []string{
	"Vegetable Biryani Trays",
	"Assorted Sandwich Platters",
	"Dal and Rice Buckets",
	"Fresh Fruit Crates",
	"Bread and Pastry Boxes",
	"Paneer Curry Containers",
	"Chicken Curry Trays",
	"Mixed Salad Bowls",
	"Idli and Sambar Batches",
	"Leftover Wedding Buffet",
}

var fakeFoodTypes = []types.FoodType{
	types.FoodTypeVeg,
	types.FoodTypeVeg,
	types.FoodTypeVeg,
	types.FoodTypeNonVeg,
	types.FoodTypeBakery,
	types.FoodTypeFruits,
}

var fakeAddresses = []string{
	"12 MG Road, near the metro station",
	"4th Block, Koramangala, opposite the park",
	"221 Indiranagar 100ft Road",
	"Banquet hall, Whitefield Main Road",
	"Community kitchen, Jayanagar 9th Block",
}

const donationsPerDonor = 5

// SeedFakeDonations lists a handful of pending donations per donor, scattered
// within a few kilometers of the donor's location so NGO matching finds them.
func SeedFakeDonations(ctx context.Context, donationRepo *store.DonationRepository) error {

	existing, err := donationRepo.CountDonations(ctx)
	if err != nil {
		return fmt.Errorf("failed to count donations: %w", err)
	}
	if existing > 0 {
		fmt.Printf("Donations already seeded: %d present, skipping\n", existing)
		return nil
	}

	predictor := expiry.NewRuleTable()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	donorLocations := map[string]types.Coordinates{}
	for _, user := range fakeUsers {
		if user.Role == types.RoleDonor {
			donorLocations[user.ID] = types.Coordinates{Lat: user.Lat, Lng: user.Lng}
		}
	}

	seeded := 0
	for _, donorID := range seedDonorIDs() {
		loc := donorLocations[donorID]

		for i := 0; i < donationsPerDonor; i++ {
			foodType := fakeFoodTypes[rng.Intn(len(fakeFoodTypes))]
			preparedAt := time.Now().Add(-time.Duration(rng.Intn(90)) * time.Minute)

			// roughly +-2km jitter in each direction
			lat := loc.Lat + (rng.Float64()-0.5)*0.036
			lng := loc.Lng + (rng.Float64()-0.5)*0.036

			donation := &types.Donation{
				DonorID:     donorID,
				Name:        fakeDonationNames[rng.Intn(len(fakeDonationNames))],
				FoodType:    foodType,
				Quantity:    fmt.Sprintf("serves %d", 10+rng.Intn(40)),
				PreparedAt:  preparedAt,
				ExpiresAt:   predictor.PredictExpiry(string(foodType), preparedAt),
				Address:     utils.StringPtr(fakeAddresses[rng.Intn(len(fakeAddresses))]),
				LocationLat: lat,
				LocationLng: lng,
				Status:      types.DonationStatusPending,
			}

			if err := donationRepo.CreateDonation(ctx, donation); err != nil {
				return fmt.Errorf("failed to create fake donation for donor %s: %w", donorID, err)
			}
			seeded++
		}
	}

	fmt.Printf("Fake donations seeded: %d created\n", seeded)
	return nil
}
