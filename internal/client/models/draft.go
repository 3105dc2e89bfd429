package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
)

// ProfileEditDraft is a form-local copy of the editable part of a user
// record. It never touches the record it was seeded from: only a confirmed
// server response replaces the cached user.
type ProfileEditDraft struct {
	FirstName     string
	LastName      string
	Bio           string
	Website       string
	TwitterHandle string

	// Picture, when set, replaces the profile picture on save.
	Picture *Picture
}

// NewProfileEditDraft seeds a draft from the current record.
func NewProfileEditDraft(u UserRecord) *ProfileEditDraft {
	p := u.Profile()
	return &ProfileEditDraft{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Bio:           p.Bio,
		Website:       p.Website,
		TwitterHandle: p.TwitterHandle,
	}
}

// DraftFieldNames are the wire names accepted by Set.
var DraftFieldNames = []string{"first_name", "last_name", "bio", "website", "twitter_handle"}

// Set assigns a field by its wire name.
func (d *ProfileEditDraft) Set(field, value string) error {
	switch field {
	case "first_name":
		d.FirstName = value
	case "last_name":
		d.LastName = value
	case "bio":
		d.Bio = value
	case "website":
		d.Website = value
	case "twitter_handle":
		d.TwitterHandle = value
	default:
		return fmt.Errorf("%w: unknown profile field %q (want one of %s)",
			common.ErrorInvalidInput, field, strings.Join(DraftFieldNames, ", "))
	}
	return nil
}

// Fields lists the non-empty fields in wire order. Empty fields are left out
// entirely so the server does not read them as "clear this value".
func (d *ProfileEditDraft) Fields() []FormField {
	return nonEmpty(
		FormField{"first_name", d.FirstName},
		FormField{"last_name", d.LastName},
		FormField{"bio", d.Bio},
		FormField{"website", d.Website},
		FormField{"twitter_handle", d.TwitterHandle},
	)
}

// IsEmpty reports whether saving the draft would send nothing.
func (d *ProfileEditDraft) IsEmpty() bool {
	return len(d.Fields()) == 0 && d.Picture.Empty()
}
