package types

import "time"

type FoodType string

const (
	FoodTypeVeg    FoodType = "veg"
	FoodTypeNonVeg FoodType = "non-veg"
	FoodTypeBakery FoodType = "bakery"
	FoodTypeFruits FoodType = "fruits"
)

type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusAccepted  DonationStatus = "accepted"
	DonationStatusPickedUp  DonationStatus = "picked_up"
	DonationStatusDelivered DonationStatus = "delivered"
)

type Donation struct {
	ID                  string         `db:"id"`
	DonorID             string         `db:"donor_id"`
	Name                string         `db:"name"`
	FoodType            FoodType       `db:"food_type"`
	Quantity            string         `db:"quantity"`
	ImageKey            *string        `db:"image_key"`
	PreparedAt          time.Time      `db:"prepared_at"`
	ExpiresAt           time.Time      `db:"expires_at"`
	Address             *string        `db:"address"`
	LocationLat         float64        `db:"location_lat"`
	LocationLng         float64        `db:"location_lng"`
	SpecialInstructions *string        `db:"special_instructions"`
	Status              DonationStatus `db:"status"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (d *Donation) Location() Coordinates {
	return Coordinates{Lat: d.LocationLat, Lng: d.LocationLng}
}

func (d *Donation) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
