package models

import (
	"encoding/json"
	"strings"
)

// AuthorProfile is the public author part of a user record.
type AuthorProfile struct {
	Bio               string `json:"bio,omitempty"`
	Website           string `json:"website,omitempty"`
	TwitterHandle     string `json:"twitter_handle,omitempty"`
	ProfilePictureURL string `json:"profile_picture,omitempty"`
}

// UserRecord is the client's copy of the identity and profile of a user.
// The remote API is the source of truth; the client only ever replaces the
// whole record with one the server returned.
type UserRecord struct {
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	AuthorProfile *AuthorProfile `json:"author_profile,omitempty"`
}

// UnmarshalJSON accepts the profile either nested as "author_profile" or as
// an "author" object, which is how login and registration responses spell it.
func (u *UserRecord) UnmarshalJSON(b []byte) error {
	type plain UserRecord
	var aux struct {
		plain
		Author *AuthorProfile `json:"author"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*u = UserRecord(aux.plain)
	if u.AuthorProfile == nil {
		u.AuthorProfile = aux.Author
	}
	return nil
}

// Clone returns a deep copy so callers never share the profile pointer.
func (u UserRecord) Clone() UserRecord {
	if u.AuthorProfile != nil {
		p := *u.AuthorProfile
		u.AuthorProfile = &p
	}
	return u
}

// Profile returns the author profile or a zero value.
func (u UserRecord) Profile() AuthorProfile {
	if u.AuthorProfile == nil {
		return AuthorProfile{}
	}
	return *u.AuthorProfile
}

// DisplayName is "First Last" when both are set, the username otherwise.
func (u UserRecord) DisplayName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// Initial is the upper-cased first letter of the username, used when a user
// has no profile picture.
func (u UserRecord) Initial() string {
	if u.Username == "" {
		return ""
	}
	return strings.ToUpper(string([]rune(u.Username)[0]))
}

// AuthStatus is the answer of the auth check endpoint.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}
