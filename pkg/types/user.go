package types

import "time"

type Role string

const (
	RoleDonor     Role = "donor"
	RoleNGO       Role = "ngo"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleNGO, RoleVolunteer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        *string   `db:"email"`
	Role         Role      `db:"role"`
	Phone        *string   `db:"phone"`
	Address      *string   `db:"address"`
	LocationLat  *float64  `db:"location_lat"`
	LocationLng  *float64  `db:"location_lng"`
	RewardPoints int       `db:"reward_points"`
	IsFraudulent bool      `db:"is_fraudulent"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Location returns the user's coordinates, or nil when either component has
// never been reported.
func (u *User) Location() *Coordinates {
	if u.LocationLat == nil || u.LocationLng == nil {
		return nil
	}
	return &Coordinates{Lat: *u.LocationLat, Lng: *u.LocationLng}
}

type Coordinates struct {
	Lat float64
	Lng float64
}
