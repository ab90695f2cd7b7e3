package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodsaver/internal/expiry"
	"foodsaver/internal/lifecycle"
	"foodsaver/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	donor     = &types.User{ID: "donor-1", Username: "dana", Role: types.RoleDonor}
	ngo       = &types.User{ID: "ngo-1", Username: "helping-hands", Role: types.RoleNGO}
	ngo2      = &types.User{ID: "ngo-2", Username: "food-for-all", Role: types.RoleNGO}
	volunteer = &types.User{ID: "vol-1", Username: "victor", Role: types.RoleVolunteer}
)

func fixedClock(at time.Time) lifecycle.Option {
	return lifecycle.WithClock(func() time.Time { return at })
}

func newService(store *memStore, opts ...lifecycle.Option) *lifecycle.Service {
	return lifecycle.New(store, store, store, expiry.NewRuleTable(), opts...)
}

func createInput() lifecycle.CreateInput {
	return lifecycle.CreateInput{
		Name:     "Rice and curry",
		FoodType: "non-veg",
		Quantity: "10 servings",
		Lat:      12.9716,
		Lng:      77.5946,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("sets pending status and predicted expiry", func(t *testing.T) {
		store := newMemStore()
		svc := newService(store, fixedClock(now))

		res, err := svc.Create(ctx, donor, createInput())
		require.NoError(t, err)
		require.True(t, res.OK())
		require.NotNil(t, res.Donation)

		assert.Equal(t, types.DonationStatusPending, res.Donation.Status)
		assert.Equal(t, now, res.Donation.PreparedAt)
		assert.Equal(t, now.Add(6*time.Hour), res.Donation.ExpiresAt)
		assert.NotEmpty(t, res.Donation.ID)
	})

	t.Run("normalizes food type before predicting expiry", func(t *testing.T) {
		store := newMemStore()
		svc := newService(store, fixedClock(now))

		input := createInput()
		input.FoodType = "  Veg "

		res, err := svc.Create(ctx, donor, input)
		require.NoError(t, err)
		require.True(t, res.OK())

		assert.Equal(t, types.FoodTypeVeg, res.Donation.FoodType)
		assert.Equal(t, now.Add(12*time.Hour), res.Donation.ExpiresAt)
	})

	t.Run("rejects non-donor actors", func(t *testing.T) {
		store := newMemStore()
		svc := newService(store)

		res, err := svc.Create(ctx, ngo, createInput())
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		store := newMemStore()
		svc := newService(store)

		input := createInput()
		input.Name = "  "
		input.Lat = 91

		_, err := svc.Create(ctx, donor, input)
		var invalid *lifecycle.InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Fields, "name")
		assert.Contains(t, invalid.Fields, "lat")
	})
}

func TestClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*memStore, *lifecycle.Service, string) {
		store := newMemStore()
		svc := newService(store, fixedClock(now))

		res, err := svc.Create(ctx, donor, createInput())
		require.NoError(t, err)
		return store, svc, res.Donation.ID
	}

	t.Run("pending donation becomes accepted with a pickup", func(t *testing.T) {
		store, svc, donationID := setup(t)

		res, err := svc.Claim(ctx, ngo, donationID)
		require.NoError(t, err)
		require.True(t, res.OK())

		assert.Equal(t, types.DonationStatusAccepted, store.donationStatus(donationID))
		require.NotNil(t, res.Pickup)
		assert.Equal(t, donationID, res.Pickup.DonationID)
		assert.Equal(t, ngo.ID, res.Pickup.NgoID)
		assert.Nil(t, res.Pickup.VolunteerID)
		assert.Equal(t, types.PickupStageClaimed, res.Pickup.Stage())
	})

	t.Run("non-ngo actor is rejected", func(t *testing.T) {
		_, svc, donationID := setup(t)

		res, err := svc.Claim(ctx, volunteer, donationID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
	})

	t.Run("unknown donation reports not found", func(t *testing.T) {
		_, svc, _ := setup(t)

		res, err := svc.Claim(ctx, ngo, "nope")
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomeNotFound, res.Outcome)
	})

	t.Run("second claim fails", func(t *testing.T) {
		_, svc, donationID := setup(t)

		res, err := svc.Claim(ctx, ngo, donationID)
		require.NoError(t, err)
		require.True(t, res.OK())

		res, err = svc.Claim(ctx, ngo2, donationID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
	})

	t.Run("expired donation cannot be claimed", func(t *testing.T) {
		store, _, donationID := setup(t)

		// non-veg expires after 6h; claim 7h later
		late := newService(store, fixedClock(now.Add(7*time.Hour)))
		res, err := late.Claim(ctx, ngo, donationID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
		assert.Equal(t, types.DonationStatusPending, store.donationStatus(donationID))
	})
}

func TestClaim_ConcurrentRace(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newService(store)

	res, err := svc.Create(ctx, donor, createInput())
	require.NoError(t, err)
	donationID := res.Donation.ID

	// failures are collected and asserted on the test goroutine
	results := make([]*lifecycle.Result, 2)
	claimErrs := make([]error, 2)
	var wg sync.WaitGroup
	for i, claimant := range []*types.User{ngo, ngo2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], claimErrs[i] = svc.Claim(ctx, claimant, donationID)
		}()
	}
	wg.Wait()

	for _, cerr := range claimErrs {
		require.NoError(t, cerr)
	}

	var won, lost int
	for _, r := range results {
		switch r.Outcome {
		case lifecycle.OutcomeOK:
			won++
		case lifecycle.OutcomePreconditionFailed:
			lost++
		}
	}
	assert.Equal(t, 1, won, "exactly one concurrent claim must win")
	assert.Equal(t, 1, lost, "the loser must observe a precondition failure")
}

func TestVolunteerAccept(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*memStore, *lifecycle.Service, string) {
		store := newMemStore()
		svc := newService(store)

		res, err := svc.Create(ctx, donor, createInput())
		require.NoError(t, err)
		donationID := res.Donation.ID

		res, err = svc.Claim(ctx, ngo, donationID)
		require.NoError(t, err)
		require.True(t, res.OK())
		return store, svc, donationID
	}

	t.Run("assigns the volunteer", func(t *testing.T) {
		_, svc, donationID := setup(t)

		res, err := svc.VolunteerAccept(ctx, volunteer, donationID)
		require.NoError(t, err)
		require.True(t, res.OK())
		require.NotNil(t, res.Pickup.VolunteerID)
		assert.Equal(t, volunteer.ID, *res.Pickup.VolunteerID)
		assert.Equal(t, types.PickupStageVolunteerAssigned, res.Pickup.Stage())
	})

	t.Run("second volunteer is rejected", func(t *testing.T) {
		_, svc, donationID := setup(t)

		_, err := svc.VolunteerAccept(ctx, volunteer, donationID)
		require.NoError(t, err)

		other := &types.User{ID: "vol-2", Role: types.RoleVolunteer}
		res, err := svc.VolunteerAccept(ctx, other, donationID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
	})

	t.Run("unclaimed donation is rejected", func(t *testing.T) {
		store := newMemStore()
		svc := newService(store)

		res, err := svc.Create(ctx, donor, createInput())
		require.NoError(t, err)

		accept, err := svc.VolunteerAccept(ctx, volunteer, res.Donation.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, accept.Outcome)
	})

	t.Run("unknown donation reports not found", func(t *testing.T) {
		_, svc, _ := setup(t)

		res, err := svc.VolunteerAccept(ctx, volunteer, "nope")
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomeNotFound, res.Outcome)
	})
}

func TestConfirmPickupAndDelivery(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*memStore, *lifecycle.Service, string, string) {
		store := newMemStore()
		svc := newService(store)

		res, err := svc.Create(ctx, donor, createInput())
		require.NoError(t, err)
		donationID := res.Donation.ID

		res, err = svc.Claim(ctx, ngo, donationID)
		require.NoError(t, err)
		pickupID := res.Pickup.ID

		_, err = svc.VolunteerAccept(ctx, volunteer, donationID)
		require.NoError(t, err)
		return store, svc, donationID, pickupID
	}

	t.Run("pickup then delivery, in order", func(t *testing.T) {
		store, svc, donationID, pickupID := setup(t)

		res, err := svc.ConfirmPickup(ctx, volunteer, pickupID)
		require.NoError(t, err)
		require.True(t, res.OK())
		assert.Equal(t, types.DonationStatusPickedUp, store.donationStatus(donationID))
		assert.Equal(t, types.PickupStagePickedUp, res.Pickup.Stage())

		res, err = svc.ConfirmDelivery(ctx, volunteer, pickupID)
		require.NoError(t, err)
		require.True(t, res.OK())
		assert.Equal(t, types.DonationStatusDelivered, store.donationStatus(donationID))
		assert.Equal(t, types.PickupStageDelivered, res.Pickup.Stage())
		assert.Equal(t, 10, store.rewardBalance(volunteer.ID))
	})

	t.Run("delivery before pickup is rejected", func(t *testing.T) {
		store, svc, donationID, pickupID := setup(t)

		res, err := svc.ConfirmDelivery(ctx, volunteer, pickupID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
		assert.Equal(t, types.DonationStatusAccepted, store.donationStatus(donationID))
		assert.Zero(t, store.rewardBalance(volunteer.ID))
	})

	t.Run("unassigned volunteer cannot confirm", func(t *testing.T) {
		_, svc, _, pickupID := setup(t)

		other := &types.User{ID: "vol-2", Role: types.RoleVolunteer}
		res, err := svc.ConfirmPickup(ctx, other, pickupID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
	})

	t.Run("double delivery confirmation credits once", func(t *testing.T) {
		store, svc, _, pickupID := setup(t)

		_, err := svc.ConfirmPickup(ctx, volunteer, pickupID)
		require.NoError(t, err)

		res, err := svc.ConfirmDelivery(ctx, volunteer, pickupID)
		require.NoError(t, err)
		require.True(t, res.OK())

		res, err = svc.ConfirmDelivery(ctx, volunteer, pickupID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
		assert.Equal(t, 10, store.rewardBalance(volunteer.ID))
	})

	t.Run("unknown pickup reports not found", func(t *testing.T) {
		_, svc, _, _ := setup(t)

		res, err := svc.ConfirmPickup(ctx, volunteer, "nope")
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomeNotFound, res.Outcome)

		res, err = svc.ConfirmDelivery(ctx, volunteer, "nope")
		require.NoError(t, err)
		assert.Equal(t, lifecycle.OutcomeNotFound, res.Outcome)
	})
}

// The delivery stamp and the reward credit commit separately. When the ledger
// fails right after the stamp lands, a retry must still credit the volunteer
// instead of bouncing off the already-delivered gate with the points lost.
func TestConfirmDelivery_CreditSurvivesLedgerFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := &flakyLedger{memStore: store}
	svc := lifecycle.New(store, store, ledger, expiry.NewRuleTable())

	created, err := svc.Create(ctx, donor, createInput())
	require.NoError(t, err)
	donationID := created.Donation.ID

	claimed, err := svc.Claim(ctx, ngo, donationID)
	require.NoError(t, err)
	pickupID := claimed.Pickup.ID

	_, err = svc.VolunteerAccept(ctx, volunteer, donationID)
	require.NoError(t, err)
	_, err = svc.ConfirmPickup(ctx, volunteer, pickupID)
	require.NoError(t, err)

	// first confirmation: the delivery commits, the credit does not
	_, err = svc.ConfirmDelivery(ctx, volunteer, pickupID)
	require.Error(t, err)
	assert.Equal(t, types.DonationStatusDelivered, store.donationStatus(donationID))
	assert.Zero(t, store.rewardBalance(volunteer.ID))

	// the retry re-applies the credit even though the delivery already stands
	res, err := svc.ConfirmDelivery(ctx, volunteer, pickupID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
	assert.Equal(t, 10, store.rewardBalance(volunteer.ID))

	// further retries stay at exactly one credit
	res, err = svc.ConfirmDelivery(ctx, volunteer, pickupID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomePreconditionFailed, res.Outcome)
	assert.Equal(t, 10, store.rewardBalance(volunteer.ID))
}

// Walks the whole lifecycle the way the handlers drive it: list, claim,
// accept, pick up, deliver.
func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	store := newMemStore()
	svc := newService(store, fixedClock(now))

	created, err := svc.Create(ctx, donor, createInput())
	require.NoError(t, err)
	assert.Equal(t, now.Add(6*time.Hour), created.Donation.ExpiresAt)

	claimed, err := svc.Claim(ctx, ngo, created.Donation.ID)
	require.NoError(t, err)
	require.True(t, claimed.OK())
	assert.Equal(t, types.DonationStatusAccepted, claimed.Donation.Status)

	accepted, err := svc.VolunteerAccept(ctx, volunteer, created.Donation.ID)
	require.NoError(t, err)
	require.True(t, accepted.OK())

	pickedUp, err := svc.ConfirmPickup(ctx, volunteer, claimed.Pickup.ID)
	require.NoError(t, err)
	require.True(t, pickedUp.OK())
	assert.Equal(t, types.DonationStatusPickedUp, pickedUp.Donation.Status)

	delivered, err := svc.ConfirmDelivery(ctx, volunteer, claimed.Pickup.ID)
	require.NoError(t, err)
	require.True(t, delivered.OK())
	assert.Equal(t, types.DonationStatusDelivered, delivered.Donation.Status)
	assert.Equal(t, 10, store.rewardBalance(volunteer.ID))

	// out-of-order attempts leave the final state unchanged
	reclaim, err := svc.Claim(ctx, ngo2, created.Donation.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomePreconditionFailed, reclaim.Outcome)
	assert.Equal(t, types.DonationStatusDelivered, store.donationStatus(created.Donation.ID))
}

func TestResultOutcomesAreDistinguishable(t *testing.T) {
	assert.NotEqual(t, lifecycle.OutcomeOK, lifecycle.OutcomePreconditionFailed)
	assert.NotEqual(t, lifecycle.OutcomePreconditionFailed, lifecycle.OutcomeNotFound)

	var invalid *lifecycle.InvalidInputError
	assert.False(t, errors.As(types.ErrDonationNotFound, &invalid))
}
