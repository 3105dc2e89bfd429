package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/client/services"
)

// ---- helpers ----

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

// captureOutput replaces printlnFn and returns everything printed, one entry
// per call.
func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &out
}

func joined(out *[]string) string { return strings.Join(*out, "\n") }

// stubInputs answers getSimpleText prompts in order and getPassword with pw.
func stubInputs(t *testing.T, pw string, answers ...string) *[]string {
	t.Helper()
	var prompts []string
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		prompts = append(prompts, prompt)
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
	return &prompts
}

func stubReadFile(t *testing.T, files map[string][]byte) {
	t.Helper()
	orig := readFile
	readFile = func(name string) ([]byte, error) {
		if b, ok := files[name]; ok {
			return b, nil
		}
		return nil, io.ErrUnexpectedEOF
	}
	t.Cleanup(func() { readFile = orig })
}

// ---- fake session ----

type fakeSession struct {
	user  *models.UserRecord
	token bool

	// Register
	LastRegister models.RegistrationInput
	registerErr  error

	// Login
	LastLogin models.Credentials
	loginUser models.UserRecord
	loginErr  error
	loginN    int

	// Logout
	logoutN   int
	logoutErr error

	// CurrentUser
	currentN   int
	currentErr error

	// CheckAuth
	checkN   int
	checkOut models.AuthStatus
	// checkClears simulates an authoritative rejection.
	checkClears bool

	// UpdateProfile
	LastDraft models.ProfileEditDraft
	updateOut models.UserRecord
	updateErr error
}

func (f *fakeSession) Register(_ context.Context, in models.RegistrationInput) (models.UserRecord, error) {
	f.LastRegister = in
	if f.registerErr != nil {
		return models.UserRecord{}, f.registerErr
	}
	u := models.UserRecord{Username: in.Username, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName}
	f.user, f.token = &u, true
	return u, nil
}

func (f *fakeSession) Login(_ context.Context, creds models.Credentials) (models.UserRecord, error) {
	f.loginN++
	f.LastLogin = creds
	if f.loginErr != nil {
		return models.UserRecord{}, f.loginErr
	}
	u := f.loginUser
	f.user, f.token = &u, true
	return u, nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.logoutN++
	f.user, f.token = nil, false
	return f.logoutErr
}

func (f *fakeSession) CurrentUser(context.Context) (models.UserRecord, error) {
	f.currentN++
	if !f.token {
		return models.UserRecord{}, services.ErrUnauthenticated
	}
	if f.currentErr != nil {
		return models.UserRecord{}, f.currentErr
	}
	return *f.user, nil
}

func (f *fakeSession) CheckAuth(context.Context) models.AuthStatus {
	f.checkN++
	if f.checkClears {
		f.user, f.token = nil, false
	}
	return f.checkOut
}

func (f *fakeSession) UpdateProfile(_ context.Context, d *models.ProfileEditDraft) (models.UserRecord, error) {
	if !f.token {
		return models.UserRecord{}, services.ErrUnauthenticated
	}
	f.LastDraft = *d
	if f.updateErr != nil {
		return models.UserRecord{}, f.updateErr
	}
	u := f.updateOut
	f.user = &u
	d.Picture = nil
	return u, nil
}

func (f *fakeSession) CachedUser() (models.UserRecord, bool) {
	if f.user == nil {
		return models.UserRecord{}, false
	}
	return f.user.Clone(), true
}

func (f *fakeSession) IsAuthenticated() bool { return f.token }

func loggedIn(u models.UserRecord) *fakeSession {
	return &fakeSession{user: &u, token: true}
}

// ---- fake content ----

type fakeContent struct {
	posts   []models.Post
	listErr error

	LastSlug string
	post     *models.Post
	getErr   error

	mine    []models.Post
	mineErr error
	mineN   int

	LastNew   models.NewPost
	createErr error

	LastUpload *models.Picture
	uploadURL  string
	uploadErr  error
}

func (f *fakeContent) ListPosts(context.Context) ([]models.Post, error) {
	return f.posts, f.listErr
}

func (f *fakeContent) GetPost(_ context.Context, slug string) (*models.Post, error) {
	f.LastSlug = slug
	return f.post, f.getErr
}

func (f *fakeContent) MyPosts(context.Context) ([]models.Post, error) {
	f.mineN++
	return f.mine, f.mineErr
}

func (f *fakeContent) CreatePost(_ context.Context, p models.NewPost) (*models.Post, error) {
	f.LastNew = p
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Post{Title: p.Title, Slug: strings.ToLower(strings.ReplaceAll(p.Title, " ", "-")), IsPublished: p.IsPublished}, nil
}

func (f *fakeContent) UploadImage(_ context.Context, pic *models.Picture) (string, error) {
	f.LastUpload = pic
	return f.uploadURL, f.uploadErr
}
