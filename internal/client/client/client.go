package client

import (
	"context"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
)

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Token string
	User  models.UserRecord
}

// Client is the contract of the remote content/identity API.
//
// The client is stateless with respect to credentials: every authenticated
// call takes the token explicitly, and an empty token means the call is made
// without an Authorization header. Owning the token is the job of the
// session manager.
type Client interface {
	Register(ctx context.Context, in models.RegistrationInput) (*AuthResult, error)
	Login(ctx context.Context, creds models.Credentials) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*models.UserRecord, error)
	CheckAuth(ctx context.Context, token string) (*models.AuthStatus, error)
	// UpdateProfile returns the updated record, or nil when the server
	// acknowledged the update without echoing the record.
	UpdateProfile(ctx context.Context, token string, fields []models.FormField, picture *models.Picture) (*models.UserRecord, error)

	ListPosts(ctx context.Context, token string) ([]models.Post, error)
	GetPost(ctx context.Context, token string, slug string) (*models.Post, error)
	MyPosts(ctx context.Context, token string) ([]models.Post, error)
	CreatePost(ctx context.Context, token string, post models.NewPost) (*models.Post, error)
	UploadImage(ctx context.Context, token string, picture models.Picture) (string, error)
}
