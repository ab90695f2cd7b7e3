package seed

import (
	"context"
	"errors"
	"fmt"

	"foodsaver/internal/store"
	"foodsaver/internal/utils"
	"foodsaver/pkg/types"

	"github.com/k0kubun/pp/v3"
)

type fakeUserSeed struct {
	ID       string
	Username string
	Email    string
	Role     types.Role
	Lat      float64
	Lng      float64
}

// Demo accounts, one per role plus a second NGO for claim contention. The
// coordinates cluster around central Bengaluru so proximity matching has
// something to chew on.
var fakeUsers = []fakeUserSeed{
	{ID: "11111111-1111-1111-1111-111111111111", Username: "greenleaf-kitchen", Email: "donor+seed1@example.com", Role: types.RoleDonor, Lat: 12.9716, Lng: 77.5946},
	{ID: "22222222-2222-2222-2222-222222222222", Username: "annapurna-caterers", Email: "donor+seed2@example.com", Role: types.RoleDonor, Lat: 12.9352, Lng: 77.6245},
	{ID: "33333333-3333-3333-3333-333333333333", Username: "helping-hands-ngo", Email: "ngo+seed1@example.com", Role: types.RoleNGO, Lat: 12.9784, Lng: 77.6408},
	{ID: "44444444-4444-4444-4444-444444444444", Username: "feed-the-city", Email: "ngo+seed2@example.com", Role: types.RoleNGO, Lat: 12.9141, Lng: 77.6839},
	{ID: "55555555-5555-5555-5555-555555555555", Username: "ravi-volunteer", Email: "volunteer+seed1@example.com", Role: types.RoleVolunteer, Lat: 12.9592, Lng: 77.6974},
	{ID: "66666666-6666-6666-6666-666666666666", Username: "platform-admin", Email: "admin+seed1@example.com", Role: types.RoleAdmin, Lat: 12.9716, Lng: 77.5946},
}

func seedDonorIDs() []string {
	ids := make([]string, 0, len(fakeUsers))
	for _, user := range fakeUsers {
		if user.Role == types.RoleDonor {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

func SeedFakeUsers(ctx context.Context, userRepo *store.UserRepository) error {
	seeded := 0
	for _, fakeUser := range fakeUsers {
		_, err := userRepo.User(ctx, fakeUser.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrUserNotFound) {
			return fmt.Errorf("failed to fetch fake user %s: %w", fakeUser.ID, err)
		}

		newUser := &types.User{
			ID:          fakeUser.ID,
			Username:    fakeUser.Username,
			Email:       utils.StringPtr(fakeUser.Email),
			Role:        fakeUser.Role,
			LocationLat: utils.Float64Ptr(fakeUser.Lat),
			LocationLng: utils.Float64Ptr(fakeUser.Lng),
		}

		if err := userRepo.CreateUser(ctx, newUser); err != nil {
			return fmt.Errorf("failed to create fake user %s: %w", fakeUser.ID, err)
		}
		seeded++
	}

	if seeded > 0 {
		pp.Println(fakeUsers)
	}

	fmt.Printf("Fake users seeded: %d created\n", seeded)
	return nil
}
