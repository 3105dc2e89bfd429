package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/client/client"
	"github.com/dmitrijs2005/blogkeeper/internal/client/config"
	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/client/services"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
)

// sessionService is the part of services.SessionManager the pages use.
type sessionService interface {
	Register(ctx context.Context, in models.RegistrationInput) (models.UserRecord, error)
	Login(ctx context.Context, creds models.Credentials) (models.UserRecord, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (models.UserRecord, error)
	CheckAuth(ctx context.Context) models.AuthStatus
	UpdateProfile(ctx context.Context, draft *models.ProfileEditDraft) (models.UserRecord, error)
	CachedUser() (models.UserRecord, bool)
	IsAuthenticated() bool
}

// contentService is the part of services.ContentService the pages use.
type contentService interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, slug string) (*models.Post, error)
	MyPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, post models.NewPost) (*models.Post, error)
	UploadImage(ctx context.Context, picture *models.Picture) (string, error)
}

type App struct {
	config  *config.Config
	session sessionService
	content contentService
	log     logging.Logger
	db      *sql.DB
	reader  *bufio.Reader

	// draft is non-nil while the profile is being edited.
	draft *models.ProfileEditDraft
}

// NewApp opens the local session database and wires the API client and
// services from c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(os.Stderr, c.LogLevel, c.LogFormat)

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DBPath, logging.Err(err))
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.APIBaseURL, c.RequestTimeout, log.With("component", "api"))

	sm, err := services.NewSessionManager(ctx, apiClient, db, log.With("component", "session"), c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	cs := services.NewContentService(apiClient, sm, c.MediaBaseURL, c.RequestTimeout, log.With("component", "content"))

	return &App{
		config:  c,
		session: sm,
		content: cs,
		log:     log,
		db:      db,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	if a.db != nil {
		defer a.db.Close()
	}
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) isEditing() bool {
	return a.draft != nil
}

// StartSessionWatcher re-checks the token every interval while logged in and
// tells the user when the server has invalidated it. A failed check caused by
// the network keeps the session.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkSessionOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkSessionOnce(ctx context.Context) {
	if !a.session.IsAuthenticated() {
		return
	}
	if st := a.session.CheckAuth(ctx); st.Authenticated {
		return
	}
	if !a.session.IsAuthenticated() {
		printlnFn("Your session has expired. Type 'login' to sign in again.")
	}
}
