package cli

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/blogkeeper/internal/client/client"
	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ada() models.UserRecord {
	return models.UserRecord{
		Username: "ada", Email: "ada@example.org", FirstName: "Ada", LastName: "Lovelace",
		AuthorProfile: &models.AuthorProfile{Bio: "math", Website: "https://ada.dev"},
	}
}

func TestProfile_Prints(t *testing.T) {
	out := captureOutput(t)
	s := loggedIn(ada())

	require.NoError(t, (&App{session: s}).Profile(context.Background()))
	assert.Equal(t, 1, s.currentN)
	assert.Equal(t, []string{
		"Ada Lovelace (@ada)",
		"Email:   ada@example.org",
		"Picture: [A]",
		"Bio:     math",
		"Website: https://ada.dev",
	}, *out)
}

func TestProfile_AnonymousRedirectsToLogin(t *testing.T) {
	out := captureOutput(t)
	s := &fakeSession{loginUser: ada()}
	stubInputs(t, "correct-horse", "ada")

	require.NoError(t, (&App{session: s}).Profile(context.Background()))
	assert.Equal(t, 2, s.currentN)
	assert.Equal(t, "You need to log in first.", (*out)[0])
	assert.Contains(t, joined(out), "Ada Lovelace (@ada)")
}

func TestEdit_SaveFlow(t *testing.T) {
	captureOutput(t)
	s := loggedIn(ada())
	updated := ada()
	updated.AuthorProfile.Bio = "new bio"
	s.updateOut = updated
	stubReadFile(t, map[string][]byte{"/me.png": png})

	a := &App{session: s}
	ctx := context.Background()

	require.NoError(t, a.Edit(ctx))
	require.True(t, a.isEditing())
	assert.Equal(t, "math", a.draft.Bio)

	require.NoError(t, a.EditSet("bio", "new bio"))
	require.Error(t, a.EditSet("email", "x@y.z"))
	require.NoError(t, a.EditPicture("/me.png"))

	cached, _ := s.CachedUser()
	assert.Equal(t, "math", cached.Profile().Bio, "draft changes never touch the record")

	require.NoError(t, a.EditSave(ctx))
	assert.False(t, a.isEditing())
	assert.Equal(t, "new bio", s.LastDraft.Bio)
	require.NotNil(t, s.LastDraft.Picture)
	assert.Equal(t, "me.png", s.LastDraft.Picture.Filename)

	cached, _ = s.CachedUser()
	assert.Equal(t, "new bio", cached.Profile().Bio)
}

func TestEdit_SaveFailureKeepsDraft(t *testing.T) {
	out := captureOutput(t)
	s := loggedIn(ada())
	s.updateErr = &client.APIError{Op: "update profile", StatusCode: 400,
		Fields: []client.FieldError{{Field: "website", Messages: []string{"Enter a valid URL."}}}}

	a := &App{session: s}
	require.NoError(t, a.Edit(context.Background()))
	require.NoError(t, a.EditSet("website", "nope"))

	require.Error(t, a.EditSave(context.Background()))
	require.True(t, a.isEditing())
	assert.Equal(t, "nope", a.draft.Website)
	assert.Contains(t, joined(out), "  website: Enter a valid URL.")

	a.EditCancel()
	assert.False(t, a.isEditing())
	cached, _ := s.CachedUser()
	assert.Equal(t, "https://ada.dev", cached.Profile().Website)
}

func TestEdit_CommandsOutsideEditMode(t *testing.T) {
	out := captureOutput(t)
	a := &App{session: loggedIn(ada())}

	require.NoError(t, a.EditSet("bio", "x"))
	require.NoError(t, a.EditPicture("/x.png"))
	require.NoError(t, a.EditSave(context.Background()))
	a.EditCancel()

	assert.Equal(t, []string{
		"Not editing; type 'edit' first.",
		"Not editing; type 'edit' first.",
		"Not editing; type 'edit' first.",
	}, *out)
}

func TestEdit_FetchesWhenNoCachedUser(t *testing.T) {
	captureOutput(t)
	u := ada()
	s := &fakeSession{token: true}
	a := &App{session: &userOnFetch{fakeSession: s, u: u}}

	require.NoError(t, a.Edit(context.Background()))
	assert.Equal(t, "Ada", a.draft.FirstName)
}

// userOnFetch has a token but no cached record until CurrentUser runs.
type userOnFetch struct {
	*fakeSession
	u models.UserRecord
}

func (f *userOnFetch) CurrentUser(ctx context.Context) (models.UserRecord, error) {
	f.user = &f.u
	return f.fakeSession.CurrentUser(ctx)
}

func TestEdit_SaveAfterSessionClearedRedirectsToLogin(t *testing.T) {
	out := captureOutput(t)
	s := loggedIn(ada())
	s.loginUser = ada()
	s.checkClears = true
	updated := ada()
	updated.AuthorProfile.Bio = "kept bio"
	s.updateOut = updated
	prompts := stubInputs(t, "correct-horse", "ada")

	a := &App{session: s}
	ctx := context.Background()

	require.NoError(t, a.Edit(ctx))
	require.NoError(t, a.EditSet("bio", "kept bio"))
	a.checkSessionOnce(ctx)
	require.False(t, s.IsAuthenticated())

	require.NoError(t, a.EditSave(ctx))
	assert.Equal(t, 1, s.loginN)
	assert.Equal(t, []string{"Enter username or email"}, *prompts)
	assert.Equal(t, "kept bio", s.LastDraft.Bio, "the draft survives the redirect")
	assert.False(t, a.isEditing())
	assert.Contains(t, joined(out), "You need to log in first.")
	assert.Contains(t, joined(out), "Profile saved.")
}

func TestEdit_SaveRedirectLoginFailureKeepsDraft(t *testing.T) {
	captureOutput(t)
	s := &fakeSession{loginErr: &client.APIError{StatusCode: 400, NonFieldErrors: []string{"Invalid credentials"}}}
	stubInputs(t, "wrong", "ada")

	a := &App{session: s, draft: models.NewProfileEditDraft(ada())}

	require.Error(t, a.EditSave(context.Background()))
	assert.Equal(t, 1, s.loginN)
	assert.True(t, a.isEditing())
}
