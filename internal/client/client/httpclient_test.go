package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*HTTPClient, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	return NewHTTPClient(api.URL(), 5*time.Second, nil), api
}

func seedAda(api *fakeapi.Server) {
	api.AddUser(models.UserRecord{
		Username:  "ada",
		Email:     "ada@example.org",
		FirstName: "Ada",
		LastName:  "Lovelace",
		AuthorProfile: &models.AuthorProfile{
			Bio:     "math",
			Website: "https://ada.dev",
		},
	}, "correct-horse")
}

var png = []byte("\x89PNG\r\n\x1a\n-fake-image-bytes-")

func TestHTTPClient_Register_JSONWithoutPicture(t *testing.T) {
	c, api := newTestClient(t)

	res, err := c.Register(context.Background(), models.RegistrationInput{
		Username: "grace", Email: "grace@example.org", Password: "long-enough", FirstName: "Grace",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "grace", res.User.Username)
	assert.Equal(t, "Grace", res.User.FirstName)
	require.NotNil(t, res.User.AuthorProfile, "author sibling object must be folded into the record")

	reqs := api.RequestsTo(fakeapi.RouteRegister)
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].ContentType)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "grace", reqs[0].JSON["username"])
	assert.NotContains(t, reqs[0].JSON, "last_name")
}

func TestHTTPClient_Register_MultipartWithPicture(t *testing.T) {
	c, api := newTestClient(t)

	res, err := c.Register(context.Background(), models.RegistrationInput{
		Username: "grace", Email: "grace@example.org", Password: "long-enough",
		Picture: models.NewPicture("grace.png", png),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.Profile().ProfilePictureURL)

	reqs := api.RequestsTo(fakeapi.RouteRegister)
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].ContentType, "multipart/form-data"))
	assert.Equal(t, []string{"username", "email", "password", "profile_picture"}, reqs[0].FormKeys)
}

func TestHTTPClient_Register_ValidationErrorKeepsFields(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Register(context.Background(), models.RegistrationInput{Username: "grace", Email: "g@x.org", Password: "short"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"Ensure this field has at least 8 characters."}, apiErr.FieldMessages("password"))
}

func TestHTTPClient_Login(t *testing.T) {
	c, api := newTestClient(t)
	seedAda(api)

	res, err := c.Login(context.Background(), models.Credentials{Identifier: "ada@example.org", Password: "correct-horse"})
	require.NoError(t, err)
	assert.True(t, api.TokenValid(res.Token))
	assert.Equal(t, "math", res.User.Profile().Bio)

	reqs := api.RequestsTo(fakeapi.RouteLogin)
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]any{"identifier": "ada@example.org", "password": "correct-horse"}, reqs[0].JSON)
	assert.NotEmpty(t, reqs[0].RequestID)

	_, err = c.Login(context.Background(), models.Credentials{Identifier: "ada", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestHTTPClient_AuthenticatedCallsSendTokenHeader(t *testing.T) {
	c, api := newTestClient(t)
	seedAda(api)
	token := api.IssueToken("ada")
	ctx := context.Background()

	u, err := c.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "https://ada.dev", u.Profile().Website)

	st, err := c.CheckAuth(ctx, token)
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, "ada", st.Username)

	require.NoError(t, c.Logout(ctx, token))
	assert.False(t, api.TokenValid(token))

	for _, r := range api.Requests() {
		assert.Equal(t, "Token "+token, r.Authorization, r.Route)
	}

	_, err = c.CheckAuth(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClient_UpdateProfile_OnlySendsGivenFields(t *testing.T) {
	c, api := newTestClient(t)
	seedAda(api)
	token := api.IssueToken("ada")

	u, err := c.UpdateProfile(context.Background(), token,
		[]models.FormField{{Name: "bio", Value: "new bio"}}, nil)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "new bio", u.Profile().Bio)
	assert.Equal(t, "https://ada.dev", u.Profile().Website)

	reqs := api.RequestsTo(fakeapi.RouteProfile)
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPatch, reqs[0].Method)
	assert.True(t, strings.HasPrefix(reqs[0].ContentType, "multipart/form-data"))
	assert.Equal(t, []string{"bio"}, reqs[0].FormKeys)
}

func TestHTTPClient_UpdateProfile_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "wrapped", body: `{"user": {"username": "ada", "author_profile": {"bio": "x"}}}`, want: "ada"},
		{name: "bare record", body: `{"username": "ada", "email": "a@b.c"}`, want: "ada"},
		{name: "ack only", body: `{"message": "ok"}`, want: ""},
		{name: "empty", body: ``, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, time.Second, nil)
			u, err := c.UpdateProfile(context.Background(), "t", nil, nil)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, u)
				return
			}
			require.NotNil(t, u)
			assert.Equal(t, tt.want, u.Username)
		})
	}
}

func TestHTTPClient_NetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second, nil)
	_, err := c.CheckAuth(context.Background(), "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, IsUnauthorized(err))
}

func TestHTTPClient_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClient(srv.URL, 50*time.Millisecond, nil)
	_, err := c.CurrentUser(context.Background(), "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"username": `))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	_, err := c.CurrentUser(context.Background(), "t")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestHTTPClient_Posts(t *testing.T) {
	c, api := newTestClient(t)
	seedAda(api)
	token := api.IssueToken("ada")
	ctx := context.Background()

	api.AddPost(models.Post{Title: "Hello World", Content: "hi", IsPublished: true, Author: "ada",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	api.AddPost(models.Post{Title: "Hidden Draft", Author: "ada",
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)})

	posts, err := c.ListPosts(ctx, "")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello-world", posts[0].Slug)

	p, err := c.GetPost(ctx, "", "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", p.Title)

	_, err = c.GetPost(ctx, "", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := c.MyPosts(ctx, token)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = c.MyPosts(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	created, err := c.CreatePost(ctx, token, models.NewPost{Title: "Second Post", Content: "body", IsPublished: true})
	require.NoError(t, err)
	assert.Equal(t, "second-post", created.Slug)
	assert.Equal(t, "ada", created.Author)

	_, err = c.CreatePost(ctx, token, models.NewPost{Content: "no title"})
	require.Error(t, err)
	assert.Equal(t, "This field is required.", err.Error())
}

func TestHTTPClient_UploadImage(t *testing.T) {
	c, api := newTestClient(t)

	url, err := c.UploadImage(context.Background(), "", *models.NewPicture("cat.png", png))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, api.MediaURL()+"/media/uploads/"))
	assert.True(t, strings.HasSuffix(url, "-cat.png"))

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := api.RequestsTo(fakeapi.RouteUploadImage)
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"image"}, reqs[0].FormKeys)
}
