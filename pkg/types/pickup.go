package types

import "time"

// PickupStage is a projection of a pickup's progress derived from its
// volunteer assignment and completion timestamps. Donation.Status stays the
// single source of truth for the lifecycle; both are only ever mutated in the
// same transaction.
type PickupStage string

const (
	PickupStageClaimed           PickupStage = "claimed"
	PickupStageVolunteerAssigned PickupStage = "volunteer_assigned"
	PickupStagePickedUp          PickupStage = "picked_up"
	PickupStageDelivered         PickupStage = "delivered"
)

type Pickup struct {
	ID          string     `db:"id"`
	DonationID  string     `db:"donation_id"`
	NgoID       string     `db:"ngo_id"`
	VolunteerID *string    `db:"volunteer_id"`
	AcceptedAt  time.Time  `db:"accepted_at"`
	PickedUpAt  *time.Time `db:"picked_up_at"`
	DeliveredAt *time.Time `db:"delivered_at"`
}

func (p *Pickup) Stage() PickupStage {
	switch {
	case p.DeliveredAt != nil:
		return PickupStageDelivered
	case p.PickedUpAt != nil:
		return PickupStagePickedUp
	case p.VolunteerID != nil:
		return PickupStageVolunteerAssigned
	default:
		return PickupStageClaimed
	}
}

// PickupTask is a pickup joined with the donation it transports, used for the
// volunteer task list.
type PickupTask struct {
	Pickup

	DonationName   string         `db:"donation_name"`
	DonationStatus DonationStatus `db:"donation_status"`
	LocationLat    float64        `db:"location_lat"`
	LocationLng    float64        `db:"location_lng"`
}
