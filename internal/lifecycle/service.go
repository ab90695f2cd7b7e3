// Package lifecycle implements the donation state machine: a donation moves
// pending -> accepted -> picked_up -> delivered, strictly in that order, with
// a single pickup record created at claim time. Every transition is a
// compare-and-set executed atomically by the backing store, so concurrent
// claims or confirmations resolve to exactly one winner and every loser
// observes a precondition failure.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodsaver/internal/expiry"
	"foodsaver/internal/metrics"
	"foodsaver/pkg/types"
)

// DeliveryRewardPoints is credited to the assigned volunteer once per pickup
// on delivery confirmation.
const DeliveryRewardPoints = 10

type DonationStore interface {
	Donation(ctx context.Context, donationID string) (*types.Donation, error)
	CreateDonation(ctx context.Context, donation *types.Donation) error

	// ClaimDonation flips the donation from pending to accepted and creates
	// the pickup row in one transaction. It reports false when the donation
	// was not pending anymore, which includes losing a concurrent claim.
	ClaimDonation(ctx context.Context, donationID, ngoID string, claimedAt time.Time) (*types.Pickup, bool, error)
}

type PickupStore interface {
	Pickup(ctx context.Context, pickupID string) (*types.Pickup, error)
	PickupByDonation(ctx context.Context, donationID string) (*types.Pickup, error)

	// AssignVolunteer sets the volunteer only when none is assigned yet.
	AssignVolunteer(ctx context.Context, pickupID, volunteerID string) (bool, error)

	// ConfirmPickup stamps picked_up_at and flips the donation to picked_up
	// in one transaction, gated on the volunteer match and picked_up_at
	// being unset.
	ConfirmPickup(ctx context.Context, pickupID, volunteerID string, at time.Time) (bool, error)

	// ConfirmDelivery stamps delivered_at and flips the donation to
	// delivered in one transaction, gated on the volunteer match,
	// picked_up_at being set and delivered_at being unset.
	ConfirmDelivery(ctx context.Context, pickupID, volunteerID string, at time.Time) (bool, error)
}

// RewardLedger accrues points append-only. Credit reports false when the
// (pickup, event) pair was already credited, making re-application a no-op.
type RewardLedger interface {
	Credit(ctx context.Context, userID, pickupID, event string, points int) (bool, error)
}

type Service struct {
	donations DonationStore
	pickups   PickupStore
	rewards   RewardLedger
	predictor expiry.Predictor
	now       func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(donations DonationStore, pickups PickupStore, rewards RewardLedger, predictor expiry.Predictor, opts ...Option) *Service {
	s := &Service{
		donations: donations,
		pickups:   pickups,
		rewards:   rewards,
		predictor: predictor,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateInput struct {
	Name                string
	FoodType            string
	Quantity            string
	Lat                 float64
	Lng                 float64
	Address             string
	SpecialInstructions string
	ImageKey            *string
}

func (in *CreateInput) validate() *InvalidInputError {
	fields := map[string]string{}

	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(in.FoodType) == "" {
		fields["food_type"] = "food type is required"
	}
	if strings.TrimSpace(in.Quantity) == "" {
		fields["quantity"] = "quantity is required"
	}
	if in.Lat < -90 || in.Lat > 90 {
		fields["lat"] = "latitude must be between -90 and 90"
	}
	if in.Lng < -180 || in.Lng > 180 {
		fields["lng"] = "longitude must be between -180 and 180"
	}

	if len(fields) > 0 {
		return &InvalidInputError{Fields: fields}
	}
	return nil
}

// Create lists a new donation at status pending. Preparation time is always
// the current time, never caller-supplied; expiry is predicted from it once,
// here.
func (s *Service) Create(ctx context.Context, actor *types.User, input CreateInput) (*Result, error) {
	if actor.Role != types.RoleDonor {
		return resultFailed("Only donors can list food donations."), nil
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	foodType := strings.ToLower(strings.TrimSpace(input.FoodType))

	preparedAt := s.now()
	expiresAt := s.predictor.PredictExpiry(foodType, preparedAt)

	donation := &types.Donation{
		DonorID:     actor.ID,
		Name:        strings.TrimSpace(input.Name),
		FoodType:    types.FoodType(foodType),
		Quantity:    strings.TrimSpace(input.Quantity),
		ImageKey:    input.ImageKey,
		PreparedAt:  preparedAt,
		ExpiresAt:   expiresAt,
		LocationLat: input.Lat,
		LocationLng: input.Lng,
		Status:      types.DonationStatusPending,
	}

	if v := strings.TrimSpace(input.Address); v != "" {
		donation.Address = &v
	}
	if v := strings.TrimSpace(input.SpecialInstructions); v != "" {
		donation.SpecialInstructions = &v
	}

	if err := s.donations.CreateDonation(ctx, donation); err != nil {
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}

	metrics.DonationsCreatedTotal.Inc()

	message := fmt.Sprintf("Food %q uploaded! Predicted expiry: %s", donation.Name, expiresAt.Format("15:04"))
	return resultOK(message, donation, nil), nil
}

// Claim transitions a pending donation to accepted on behalf of an NGO and
// creates its pickup. Expired donations cannot be claimed.
func (s *Service) Claim(ctx context.Context, actor *types.User, donationID string) (*Result, error) {
	if actor.Role != types.RoleNGO {
		return resultFailed("Only NGOs can claim donations."), nil
	}

	donation, err := s.donations.Donation(ctx, donationID)
	if err != nil {
		if errors.Is(err, types.ErrDonationNotFound) {
			return resultNotFound("Donation not found."), nil
		}
		return nil, fmt.Errorf("failed to fetch donation %s: %w", donationID, err)
	}

	if donation.Status != types.DonationStatusPending {
		return resultFailed(fmt.Sprintf("%q is no longer available.", donation.Name)), nil
	}

	claimedAt := s.now()
	if donation.IsExpired(claimedAt) {
		return resultFailed(fmt.Sprintf("%q has expired and can no longer be claimed.", donation.Name)), nil
	}

	pickup, ok, err := s.donations.ClaimDonation(ctx, donationID, actor.ID, claimedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to claim donation %s: %w", donationID, err)
	}
	if !ok {
		return resultFailed(fmt.Sprintf("%q was claimed by another NGO.", donation.Name)), nil
	}

	donation.Status = types.DonationStatusAccepted
	metrics.DonationsClaimedTotal.Inc()

	message := fmt.Sprintf("You have claimed %q for pickup!", donation.Name)
	return resultOK(message, donation, pickup), nil
}

// VolunteerAccept attaches the volunteer to a claimed donation's pickup.
func (s *Service) VolunteerAccept(ctx context.Context, actor *types.User, donationID string) (*Result, error) {
	if actor.Role != types.RoleVolunteer {
		return resultFailed("Only volunteers can accept pickup tasks."), nil
	}

	pickup, err := s.pickups.PickupByDonation(ctx, donationID)
	if err != nil {
		if errors.Is(err, types.ErrPickupNotFound) {
			if _, derr := s.donations.Donation(ctx, donationID); derr != nil {
				if errors.Is(derr, types.ErrDonationNotFound) {
					return resultNotFound("Donation not found."), nil
				}
				return nil, fmt.Errorf("failed to fetch donation %s: %w", donationID, derr)
			}
			return resultFailed("This donation has not been claimed by an NGO yet."), nil
		}
		return nil, fmt.Errorf("failed to fetch pickup for donation %s: %w", donationID, err)
	}

	if pickup.VolunteerID != nil {
		return resultFailed("This pickup task already has a volunteer."), nil
	}

	ok, err := s.pickups.AssignVolunteer(ctx, pickup.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign volunteer to pickup %s: %w", pickup.ID, err)
	}
	if !ok {
		return resultFailed("Another volunteer accepted this task first."), nil
	}

	pickup.VolunteerID = &actor.ID

	return resultOK("You have accepted the pickup task.", nil, pickup), nil
}

// ConfirmPickup stamps the pickup and moves the donation to picked_up.
// Re-confirming is a precondition failure, not a second stamp.
func (s *Service) ConfirmPickup(ctx context.Context, actor *types.User, pickupID string) (*Result, error) {
	if actor.Role != types.RoleVolunteer {
		return resultFailed("Only volunteers can confirm pickups."), nil
	}

	pickup, err := s.pickups.Pickup(ctx, pickupID)
	if err != nil {
		if errors.Is(err, types.ErrPickupNotFound) {
			return resultNotFound("Pickup not found."), nil
		}
		return nil, fmt.Errorf("failed to fetch pickup %s: %w", pickupID, err)
	}

	if pickup.VolunteerID == nil || *pickup.VolunteerID != actor.ID {
		return resultFailed("This pickup task is not assigned to you."), nil
	}
	if pickup.PickedUpAt != nil {
		return resultFailed("Pickup was already confirmed."), nil
	}

	at := s.now()
	ok, err := s.pickups.ConfirmPickup(ctx, pickupID, actor.ID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm pickup %s: %w", pickupID, err)
	}
	if !ok {
		return resultFailed("Pickup was already confirmed."), nil
	}

	pickup.PickedUpAt = &at

	donation, err := s.donations.Donation(ctx, pickup.DonationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donation %s: %w", pickup.DonationID, err)
	}

	metrics.PickupsConfirmedTotal.Inc()

	message := fmt.Sprintf("Pickup confirmed for %q.", donation.Name)
	return resultOK(message, donation, pickup), nil
}

// ConfirmDelivery stamps delivery, moves the donation to delivered and
// credits the volunteer. The delivery stamp and the credit commit separately,
// so the already-delivered paths re-apply the credit: if the first invocation
// stamped the delivery but died before crediting, a retry by the assigned
// volunteer still lands the points. The ledger key keeps the credit at
// exactly once per pickup no matter how often this is invoked.
func (s *Service) ConfirmDelivery(ctx context.Context, actor *types.User, pickupID string) (*Result, error) {
	if actor.Role != types.RoleVolunteer {
		return resultFailed("Only volunteers can confirm deliveries."), nil
	}

	pickup, err := s.pickups.Pickup(ctx, pickupID)
	if err != nil {
		if errors.Is(err, types.ErrPickupNotFound) {
			return resultNotFound("Pickup not found."), nil
		}
		return nil, fmt.Errorf("failed to fetch pickup %s: %w", pickupID, err)
	}

	if pickup.VolunteerID == nil || *pickup.VolunteerID != actor.ID {
		return resultFailed("This pickup task is not assigned to you."), nil
	}
	if pickup.PickedUpAt == nil {
		return resultFailed("Confirm the pickup before confirming delivery."), nil
	}
	if pickup.DeliveredAt != nil {
		if _, err := s.creditDelivery(ctx, actor.ID, pickup.ID); err != nil {
			return nil, err
		}
		return resultFailed("Delivery was already confirmed."), nil
	}

	at := s.now()
	ok, err := s.pickups.ConfirmDelivery(ctx, pickupID, actor.ID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm delivery %s: %w", pickupID, err)
	}
	if !ok {
		// lost to a concurrent confirmation by this volunteer
		if _, err := s.creditDelivery(ctx, actor.ID, pickup.ID); err != nil {
			return nil, err
		}
		return resultFailed("Delivery was already confirmed."), nil
	}

	pickup.DeliveredAt = &at

	if _, err := s.creditDelivery(ctx, actor.ID, pickup.ID); err != nil {
		return nil, err
	}

	donation, err := s.donations.Donation(ctx, pickup.DonationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donation %s: %w", pickup.DonationID, err)
	}

	metrics.DeliveriesConfirmedTotal.Inc()

	message := fmt.Sprintf("Delivery confirmed for %q! You earned %d reward points!", donation.Name, DeliveryRewardPoints)
	return resultOK(message, donation, pickup), nil
}

// creditDelivery applies the idempotent delivery credit for a pickup. The
// (pickup, event) ledger key absorbs repeats, so re-applying after a partial
// failure is safe.
func (s *Service) creditDelivery(ctx context.Context, volunteerID, pickupID string) (bool, error) {
	credited, err := s.rewards.Credit(ctx, volunteerID, pickupID, "delivery", DeliveryRewardPoints)
	if err != nil {
		return false, fmt.Errorf("failed to credit reward points for pickup %s: %w", pickupID, err)
	}

	if credited {
		metrics.RewardPointsCreditedTotal.Add(DeliveryRewardPoints)
	}

	return credited, nil
}
