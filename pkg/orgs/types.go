package orgs

// Organization is a clinic or imaging center tenant.
type Organization struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Logo            string `json:"logo,omitempty"`
	Address         string `json:"address"`
	PhoneNumber     string `json:"phoneNumber"`
	CreatedByUserID int64  `json:"createdByUserId"`
}
