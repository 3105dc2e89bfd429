package models

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
)

// FormField is one key/value of a form body. Order is preserved on the wire.
type FormField struct {
	Name  string
	Value string
}

// Picture is a binary image waiting to be uploaded.
type Picture struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewPicture builds a Picture and sniffs its content type.
func NewPicture(filename string, data []byte) *Picture {
	return &Picture{
		Filename:    filepath.Base(filename),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}
}

// Empty reports whether there is nothing to upload.
func (p *Picture) Empty() bool {
	return p == nil || len(p.Data) == 0
}

// Credentials are sent as a JSON body to the login endpoint.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegistrationInput is the sign-up form. Username, Password and Email are
// required; Picture switches the request to a multipart body.
type RegistrationInput struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	Picture   *Picture `json:"-"`
}

// Validate checks the required fields.
func (r RegistrationInput) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Username) == "" {
		missing = append(missing, "username")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrorInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Fields lists the non-empty text fields in wire order.
func (r RegistrationInput) Fields() []FormField {
	return nonEmpty(
		FormField{"username", r.Username},
		FormField{"email", r.Email},
		FormField{"password", r.Password},
		FormField{"first_name", r.FirstName},
		FormField{"last_name", r.LastName},
		FormField{"bio", r.Bio},
	)
}

func nonEmpty(fields ...FormField) []FormField {
	out := make([]FormField, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}
