// Package services contains the application services of the blogkeeper
// client. This file defines the session manager: it owns the token and the
// cached user record, mediates every identity-changing call and keeps the
// local SQLite copy in step with confirmed server responses.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/client/client"
	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
)

var (
	// ErrUnauthenticated is returned without a network call when an
	// operation needs a token and none is stored.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrSuperseded is returned when the session changed (logout, another
	// login) while the request was in flight; its result is discarded.
	ErrSuperseded = errors.New("session changed while the request was in flight")

	ErrInvalidInput = common.ErrorInvalidInput
)

// SessionState is the authentication state of the session.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateAuthenticating
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// SessionManager is safe for concurrent use. State changes are applied under
// one mutex and persisted before it is released; network calls run outside
// it. Every commit of a new or cleared session bumps epoch, and results of
// calls started under an older epoch are dropped with ErrSuperseded.
type SessionManager struct {
	client  client.Client
	db      *sql.DB
	log     logging.Logger
	timeout time.Duration

	mu             sync.Mutex
	token          string
	user           *models.UserRecord
	epoch          uint64
	authenticating int
}

// NewSessionManager restores the persisted session from db. A stored user
// without a token is stale and is discarded, as is a user blob that no
// longer decodes.
func NewSessionManager(ctx context.Context, c client.Client, db *sql.DB, log logging.Logger, timeout time.Duration) (*SessionManager, error) {
	if log == nil {
		log = logging.Nop()
	}
	m := &SessionManager{client: c, db: db, log: log, timeout: timeout}

	snap, err := session.NewSQLiteRepository(db).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	m.token = snap.Token
	if snap.User == nil {
		return m, nil
	}

	if snap.Token == "" {
		log.Info(ctx, "discarding cached user without a token")
		if err := session.NewSQLiteRepository(db).Clear(ctx); err != nil {
			return nil, err
		}
		return m, nil
	}

	var u models.UserRecord
	if err := json.Unmarshal(snap.User, &u); err != nil {
		log.Warn(ctx, "discarding unreadable cached user", logging.Err(err))
		if err := session.NewSQLiteRepository(db).SaveUser(ctx, nil); err != nil {
			return nil, err
		}
		return m, nil
	}
	m.user = &u
	return m, nil
}

func (m *SessionManager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Token returns the stored token, "" when anonymous.
func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// CachedUser returns a copy of the cached record.
func (m *SessionManager) CachedUser() (models.UserRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.UserRecord{}, false
	}
	return m.user.Clone(), true
}

func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.token != "":
		return StateAuthenticated
	case m.authenticating > 0:
		return StateAuthenticating
	default:
		return StateAnonymous
	}
}

func (m *SessionManager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// current returns the token and epoch an authenticated call starts from.
func (m *SessionManager) current() (string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", 0, ErrUnauthenticated
	}
	return m.token, m.epoch, nil
}

// Register creates an account and starts a session for it. A picture makes
// the request multipart; otherwise it is sent as JSON.
func (m *SessionManager) Register(ctx context.Context, in models.RegistrationInput) (models.UserRecord, error) {
	if err := in.Validate(); err != nil {
		return models.UserRecord{}, err
	}
	return m.authenticate(ctx, "register", func(ctx context.Context) (*client.AuthResult, error) {
		return m.client.Register(ctx, in)
	})
}

// Login exchanges credentials for a token. On failure the returned
// *client.APIError reads as the single message the server's payload reduces to.
func (m *SessionManager) Login(ctx context.Context, creds models.Credentials) (models.UserRecord, error) {
	return m.authenticate(ctx, "login", func(ctx context.Context) (*client.AuthResult, error) {
		return m.client.Login(ctx, creds)
	})
}

func (m *SessionManager) authenticate(ctx context.Context, op string, call func(ctx context.Context) (*client.AuthResult, error)) (models.UserRecord, error) {
	m.mu.Lock()
	m.authenticating++
	m.mu.Unlock()

	rctx, cancel := m.withTimeout(ctx)
	res, err := call(rctx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticating--

	if err != nil {
		m.log.Debug(ctx, "authentication failed", "op", op, logging.Err(err))
		return models.UserRecord{}, err
	}

	if err := m.commitLocked(ctx, res.Token, res.User); err != nil {
		return models.UserRecord{}, err
	}
	m.log.Info(ctx, "session established", "op", op, "username", res.User.Username)
	return res.User.Clone(), nil
}

// Logout clears the local session and then tells the server, best effort.
// Remote failures are logged only; the returned error is a local
// persistence failure, and the in-memory session is cleared even then.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	err := m.clearLocked(ctx, "logout")
	m.mu.Unlock()

	if token != "" {
		rctx, cancel := m.withTimeout(ctx)
		defer cancel()
		if rerr := m.client.Logout(rctx, token); rerr != nil {
			m.log.Warn(ctx, "logout remote call failed", logging.Err(rerr))
		}
	}
	return err
}

// CurrentUser fetches the record from the server and caches it. Errors
// leave the token in place.
func (m *SessionManager) CurrentUser(ctx context.Context) (models.UserRecord, error) {
	token, epoch, err := m.current()
	if err != nil {
		return models.UserRecord{}, err
	}

	rctx, cancel := m.withTimeout(ctx)
	u, err := m.client.CurrentUser(rctx, token)
	cancel()
	if err != nil {
		return models.UserRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.replaceUserLocked(ctx, epoch, *u); err != nil {
		return models.UserRecord{}, err
	}
	return u.Clone(), nil
}

// CheckAuth asks the server whether the token is still valid. Any non-2xx
// answer clears the session, gateway errors included. Only a request that
// got no usable answer reports false and keeps it.
func (m *SessionManager) CheckAuth(ctx context.Context) models.AuthStatus {
	token, epoch, err := m.current()
	if err != nil {
		return models.AuthStatus{}
	}

	rctx, cancel := m.withTimeout(ctx)
	status, err := m.client.CheckAuth(rctx, token)
	cancel()

	if err == nil {
		return *status
	}

	if noAnswer(err) {
		m.log.Warn(ctx, "auth check failed", logging.Err(err))
		return models.AuthStatus{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return models.AuthStatus{}
	}
	if cerr := m.clearLocked(ctx, "auth check rejected"); cerr != nil {
		m.log.Error(ctx, "failed to clear session", logging.Err(cerr))
	}
	return models.AuthStatus{}
}

// UpdateProfile sends the non-empty draft fields, and the picture when set,
// as one multipart request. On success the cached user is replaced by the
// server's record and the draft's picture is dropped. On failure neither
// the cache nor the draft is touched.
func (m *SessionManager) UpdateProfile(ctx context.Context, draft *models.ProfileEditDraft) (models.UserRecord, error) {
	token, epoch, err := m.current()
	if err != nil {
		return models.UserRecord{}, err
	}
	if draft == nil {
		return models.UserRecord{}, fmt.Errorf("%w: no profile draft", ErrInvalidInput)
	}

	rctx, cancel := m.withTimeout(ctx)
	defer cancel()

	u, err := m.client.UpdateProfile(rctx, token, draft.Fields(), draft.Picture)
	if err != nil {
		return models.UserRecord{}, err
	}
	if u == nil {
		// The server acknowledged without the record; ask for it.
		if u, err = m.client.CurrentUser(rctx, token); err != nil {
			return models.UserRecord{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.replaceUserLocked(ctx, epoch, *u); err != nil {
		return models.UserRecord{}, err
	}
	draft.Picture = nil
	m.log.Info(ctx, "profile updated", "username", u.Username)
	return u.Clone(), nil
}

// commitLocked stores a new session, token and user in one transaction.
func (m *SessionManager) commitLocked(ctx context.Context, token string, u models.UserRecord) error {
	blob, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return session.NewSQLiteRepository(tx).Save(ctx, token, blob)
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	c := u.Clone()
	m.token = token
	m.user = &c
	m.epoch++
	return nil
}

func (m *SessionManager) replaceUserLocked(ctx context.Context, epoch uint64, u models.UserRecord) error {
	if m.epoch != epoch {
		return ErrSuperseded
	}

	blob, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := session.NewSQLiteRepository(m.db).SaveUser(ctx, blob); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	c := u.Clone()
	m.user = &c
	return nil
}

// clearLocked drops the session in memory unconditionally and in storage.
func (m *SessionManager) clearLocked(ctx context.Context, reason string) error {
	if m.token != "" || m.user != nil {
		m.epoch++
		m.log.Info(ctx, "session cleared", "reason", reason)
	}
	m.token = ""
	m.user = nil

	if err := session.NewSQLiteRepository(m.db).Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// noAnswer reports whether err means the server never answered the request
// (network failure, timeout) or answered 2xx with a body that cannot be read.
func noAnswer(err error) bool {
	if errors.Is(err, client.ErrMalformedResponse) {
		return true
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind() == client.KindNetwork
	}
	return errors.Is(err, client.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
