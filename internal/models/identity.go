package models

// Role is the authorization role carried by an authenticated caller.
type Role string

const (
	RoleOwner         Role = "Owner"
	RoleAdministrator Role = "Administrator"
	RoleManager       Role = "Manager"
	RoleVolunteer     Role = "Volunteer"
)

// Identity is the authenticated caller as forwarded by the gateway.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// IsZero reports whether no identity was supplied.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}
