package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"foodsaver/internal/utils"
	"foodsaver/pkg/types"
)

// memStore is an in-memory stand-in for the postgres repositories. Each
// guarded transition runs under the mutex, mirroring the single-statement
// compare-and-set semantics of the real store.
type memStore struct {
	mu        sync.Mutex
	donations map[string]*types.Donation
	pickups   map[string]*types.Pickup
	points    map[string]int
	credits   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		donations: map[string]*types.Donation{},
		pickups:   map[string]*types.Pickup{},
		points:    map[string]int{},
		credits:   map[string]bool{},
	}
}

func (m *memStore) Donation(_ context.Context, donationID string) (*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	donation, ok := m.donations[donationID]
	if !ok {
		return nil, types.ErrDonationNotFound
	}
	copied := *donation
	return &copied, nil
}

func (m *memStore) CreateDonation(_ context.Context, donation *types.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	donation.ID = utils.NanoID()
	donation.CreatedAt = time.Now()
	donation.UpdatedAt = donation.CreatedAt
	copied := *donation
	m.donations[donation.ID] = &copied
	return nil
}

func (m *memStore) ClaimDonation(_ context.Context, donationID, ngoID string, claimedAt time.Time) (*types.Pickup, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	donation, ok := m.donations[donationID]
	if !ok {
		return nil, false, types.ErrDonationNotFound
	}
	if donation.Status != types.DonationStatusPending {
		return nil, false, nil
	}

	donation.Status = types.DonationStatusAccepted
	pickup := &types.Pickup{
		ID:         utils.NanoID(),
		DonationID: donationID,
		NgoID:      ngoID,
		AcceptedAt: claimedAt,
	}
	m.pickups[pickup.ID] = pickup

	copied := *pickup
	return &copied, true, nil
}

func (m *memStore) PendingDonations(_ context.Context) ([]*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*types.Donation
	for _, donation := range m.donations {
		if donation.Status == types.DonationStatusPending {
			copied := *donation
			pending = append(pending, &copied)
		}
	}
	return pending, nil
}

func (m *memStore) Pickup(_ context.Context, pickupID string) (*types.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pickup, ok := m.pickups[pickupID]
	if !ok {
		return nil, types.ErrPickupNotFound
	}
	copied := *pickup
	return &copied, nil
}

func (m *memStore) PickupByDonation(_ context.Context, donationID string) (*types.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pickup := range m.pickups {
		if pickup.DonationID == donationID {
			copied := *pickup
			return &copied, nil
		}
	}
	return nil, types.ErrPickupNotFound
}

func (m *memStore) AssignVolunteer(_ context.Context, pickupID, volunteerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pickup, ok := m.pickups[pickupID]
	if !ok {
		return false, types.ErrPickupNotFound
	}
	if pickup.VolunteerID != nil {
		return false, nil
	}

	pickup.VolunteerID = &volunteerID
	return true, nil
}

func (m *memStore) ConfirmPickup(_ context.Context, pickupID, volunteerID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pickup, ok := m.pickups[pickupID]
	if !ok {
		return false, types.ErrPickupNotFound
	}
	if pickup.VolunteerID == nil || *pickup.VolunteerID != volunteerID || pickup.PickedUpAt != nil {
		return false, nil
	}

	pickup.PickedUpAt = &at
	m.donations[pickup.DonationID].Status = types.DonationStatusPickedUp
	return true, nil
}

func (m *memStore) ConfirmDelivery(_ context.Context, pickupID, volunteerID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pickup, ok := m.pickups[pickupID]
	if !ok {
		return false, types.ErrPickupNotFound
	}
	if pickup.VolunteerID == nil || *pickup.VolunteerID != volunteerID ||
		pickup.PickedUpAt == nil || pickup.DeliveredAt != nil {
		return false, nil
	}

	pickup.DeliveredAt = &at
	m.donations[pickup.DonationID].Status = types.DonationStatusDelivered
	return true, nil
}

func (m *memStore) Credit(_ context.Context, userID, pickupID, event string, points int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pickupID + "/" + event
	if m.credits[key] {
		return false, nil
	}

	m.credits[key] = true
	m.points[userID] += points
	return true, nil
}

// flakyLedger rejects the first credit attempt and delegates afterwards,
// simulating a ledger outage right after the delivery stamp committed.
type flakyLedger struct {
	*memStore

	mu     sync.Mutex
	failed bool
}

func (l *flakyLedger) Credit(ctx context.Context, userID, pickupID, event string, points int) (bool, error) {
	l.mu.Lock()
	first := !l.failed
	l.failed = true
	l.mu.Unlock()

	if first {
		return false, errors.New("ledger unavailable")
	}

	return l.memStore.Credit(ctx, userID, pickupID, event, points)
}

func (m *memStore) rewardBalance(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.points[userID]
}

func (m *memStore) donationStatus(donationID string) types.DonationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.donations[donationID].Status
}
