// Package fakeapi is an in-memory stand-in for the remote blog API, served
// over httptest. Tests drive the real HTTP client against it, inspect the
// recorded requests, and inject failures per route.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/google/uuid"
)

// Route keys used by Fail and in RecordedRequest.Route.
const (
	RouteRegister    = "register"
	RouteLogin       = "login"
	RouteLogout      = "logout"
	RouteUser        = "user"
	RouteCheck       = "check"
	RouteProfile     = "profile"
	RouteListPosts   = "list_posts"
	RouteCreatePost  = "create_post"
	RouteGetPost     = "get_post"
	RouteMyPosts     = "my_posts"
	RouteUploadImage = "upload_image"
)

const maxUpload = 8 << 20

// RecordedRequest is what the server saw of one request.
type RecordedRequest struct {
	Route         string
	Method        string
	Path          string
	Authorization string
	ContentType   string
	RequestID     string
	// FormKeys lists multipart field and file names in arrival order.
	FormKeys []string
	// JSON holds the decoded body of application/json requests.
	JSON map[string]any
}

type failure struct {
	status int
	body   string
}

type account struct {
	password string
	user     models.UserRecord
}

// Server is the fake API. The zero value is not usable; call New.
type Server struct {
	ts *httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	posts    []models.Post
	media    map[string][]byte
	requests []RecordedRequest
	failures map[string][]failure
	nextID   int64

	// BeforeHandle, when set, runs before every request is handled, outside
	// the server lock. Tests use it to hold a request in flight.
	BeforeHandle func(route string)
}

// New starts a fake API server. Call Close when done.
func New() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		media:    make(map[string][]byte),
		failures: make(map[string][]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register/", s.route(RouteRegister, s.handleRegister))
	mux.HandleFunc("POST /api/auth/login/", s.route(RouteLogin, s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout/", s.route(RouteLogout, s.handleLogout))
	mux.HandleFunc("GET /api/auth/user/", s.route(RouteUser, s.handleUser))
	mux.HandleFunc("GET /api/auth/check/", s.route(RouteCheck, s.handleCheck))
	mux.HandleFunc("PATCH /api/auth/profile/", s.route(RouteProfile, s.handleProfile))
	mux.HandleFunc("GET /api/posts/{$}", s.route(RouteListPosts, s.handleListPosts))
	mux.HandleFunc("POST /api/posts/{$}", s.route(RouteCreatePost, s.handleCreatePost))
	mux.HandleFunc("GET /api/posts/{slug}/", s.route(RouteGetPost, s.handleGetPost))
	mux.HandleFunc("GET /api/my-posts/", s.route(RouteMyPosts, s.handleMyPosts))
	mux.HandleFunc("POST /api/upload-image/", s.route(RouteUploadImage, s.handleUploadImage))
	mux.HandleFunc("GET /media/", s.handleMedia)

	s.ts = httptest.NewServer(mux)
	return s
}

// URL is the API base URL, e.g. http://127.0.0.1:port/api.
func (s *Server) URL() string { return s.ts.URL + "/api" }

// MediaURL is the origin that serves uploaded media.
func (s *Server) MediaURL() string { return s.ts.URL }

func (s *Server) Close() { s.ts.Close() }

// AddUser seeds an account.
func (s *Server) AddUser(user models.UserRecord, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user.Clone()
	if u.AuthorProfile == nil {
		u.AuthorProfile = &models.AuthorProfile{}
	}
	s.accounts[u.Username] = &account{password: password, user: u}
}

// IssueToken creates a valid token for an existing user.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(username)
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// TokenValid reports whether token is currently accepted.
func (s *Server) TokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// AddPost seeds a post. ID and Slug are filled when empty.
func (s *Server) AddPost(p models.Post) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPostLocked(p)
}

// Fail queues a canned response for the next request on route.
func (s *Server) Fail(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, body: body})
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests for one route.
func (s *Server) RequestsTo(route string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := record(name, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		if s.BeforeHandle != nil {
			s.BeforeHandle(name)
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		var f *failure
		if queue := s.failures[name]; len(queue) > 0 {
			f = &queue[0]
			s.failures[name] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		h(w, r)
	}
}

// record snapshots r and restores its body for the handler.
func record(route string, r *http.Request) (RecordedRequest, error) {
	rec := RecordedRequest{
		Route:         route,
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get(common.AuthorizationHeaderName),
		ContentType:   r.Header.Get("Content-Type"),
		RequestID:     r.Header.Get(common.RequestIDHeaderName),
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
	if err != nil {
		return rec, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	mediaType, params, _ := mime.ParseMediaType(rec.ContentType)
	switch {
	case mediaType == "application/json" && len(body) > 0:
		if err := json.Unmarshal(body, &rec.JSON); err != nil {
			return rec, err
		}
	case strings.HasPrefix(mediaType, "multipart/"):
		keys, err := multipartKeys(body, params["boundary"])
		if err != nil {
			return rec, err
		}
		rec.FormKeys = keys
	}
	return rec, nil
}

func (s *Server) issueTokenLocked(username string) string {
	token, err := common.MakeRandHexString(20)
	if err != nil {
		panic(err)
	}
	s.tokens[token] = username
	return token
}

// userFor resolves the Authorization header; "" when missing or invalid.
func (s *Server) userFor(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), common.TokenScheme+" ")
	if !ok {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

func (s *Server) addPostLocked(p models.Post) models.Post {
	s.nextID++
	if p.ID == 0 {
		p.ID = s.nextID
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Title)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if p.Status == "" {
		if p.IsPublished {
			p.Status = "published"
		} else {
			p.Status = "draft"
		}
	}
	s.posts = append(s.posts, p)
	return p
}

func (s *Server) storeMediaLocked(dir, filename string, data []byte) string {
	path := fmt.Sprintf("/media/%s/%s-%s", dir, uuid.NewString(), filename)
	s.media[path] = data
	return s.ts.URL + path
}

func (s *Server) sortedPostsLocked(filter func(models.Post) bool) []models.Post {
	out := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter == nil || filter(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid token."})
}

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
