package types

type NavbarData struct {
	IsAuthenticated bool
	Username        string
	Role            Role
}

type NavbarDataSetter interface {
	SetNavbarData(NavbarData)
}

type BasePageData struct {
	Title  string
	Notice string
	Error  string
	Navbar NavbarData
}

func (b *BasePageData) SetNavbarData(data NavbarData) {
	b.Navbar = data
}

type RegisterPageData struct {
	BasePageData
	Username    string
	Email       string
	Phone       string
	Role        string
	FieldErrors map[string]string
}

type ConfirmRegisterPageData struct {
	BasePageData
	Email string
}

type HomePageData struct {
	BasePageData
	TotalDonations     int64
	DeliveredDonations int64
	MealsServed        int64
}

// DonationMatch mirrors a proximity match for rendering: the donation plus
// its rounded distance when the viewer has a location on file.
type DonationMatch struct {
	Donation    *Donation
	DistanceKm  float64
	HasDistance bool
}

type DashboardPageData struct {
	BasePageData
	User *User

	// donor
	MyDonations []*Donation

	// ngo
	Matches  []DonationMatch
	RadiusKm float64

	// volunteer
	UnassignedDonations []*Donation
	Tasks               []*PickupTask
	RewardEvents        []*RewardEvent
}

type DonationDetailPageData struct {
	BasePageData
	User     *User
	Donation *Donation
	Pickup   *Pickup
	ImageURL string
}

type AdminPageData struct {
	BasePageData
	User *User

	TotalUsers         int64
	TotalDonations     int64
	PendingDonations   int64
	DeliveredDonations int64
	MealsServed        int64

	RecentDonations []*Donation
	RecentUsers     []*User
}
