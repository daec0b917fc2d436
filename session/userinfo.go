package session

import "github.com/jrsteele09/restaurant-portal/internal/utils"

// Claims is the subset of the provider's user-info document the portal reads
type Claims struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	Birthdate         string `json:"birthdate,omitempty"`
	// Dob is a realm-specific attribute used when birthdate is not mapped
	Dob    string `json:"dob,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// UserInfo is the display projection of Claims. It is also the JSON shape of the
// persisted mirror.
type UserInfo struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	DOB       string `json:"dob,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

func NewUserInfo(c Claims) UserInfo {
	fullName := c.Name
	if fullName == "" {
		if c.GivenName != "" && c.FamilyName != "" {
			fullName = c.GivenName + " " + c.FamilyName
		} else {
			fullName = utils.FirstNonEmpty(c.PreferredUsername, c.Email)
		}
	}

	return UserInfo{
		ID:        c.Sub,
		Username:  utils.FirstNonEmpty(c.PreferredUsername, c.Email),
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
		Email:     c.Email,
		FullName:  fullName,
		DOB:       utils.FirstNonEmpty(c.Birthdate, c.Dob),
		Gender:    c.Gender,
	}
}
