package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/google/uuid"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

// NewHTTPClient creates a client for the API rooted at baseURL, e.g.
// "http://127.0.0.1:8000/api". timeout bounds every request end to end.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type request struct {
	op          string
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
}

// do sends r and decodes a 2xx JSON body into out (when out is non-nil).
// Every failure comes back as *APIError.
func (c *HTTPClient) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return newNetworkError(r.op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.TokenScheme+" "+r.token)
	}

	log := c.log.With("op", r.op, "request_id", requestID)
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug(ctx, "api request failed", "method", r.method, "path", r.path, logging.Err(err))
		return newNetworkError(r.op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return newNetworkError(r.op, err)
	}

	log.Debug(ctx, "api request", "method", r.method, "path", r.path,
		"status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorBody(r.op, resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Op: r.op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// multipartBody encodes fields, and the picture under fileField when present.
func multipartBody(fields []models.FormField, fileField string, picture *models.Picture) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}

	if !picture.Empty() {
		contentType := picture.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		filename := picture.Filename
		if filename == "" {
			filename = fileField
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(fileField), escapeQuotes(filename)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(picture.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// authResponse is the wire shape of login and registration responses.
type authResponse struct {
	Token  string                `json:"token"`
	User   models.UserRecord     `json:"user"`
	Author *models.AuthorProfile `json:"author"`
}

func (a authResponse) result() *AuthResult {
	user := a.User
	if user.AuthorProfile == nil {
		user.AuthorProfile = a.Author
	}
	return &AuthResult{Token: a.Token, User: user}
}

func (c *HTTPClient) Register(ctx context.Context, in models.RegistrationInput) (*AuthResult, error) {
	r := request{op: "register", method: http.MethodPost, path: "/auth/register/"}

	var err error
	if in.Picture.Empty() {
		r.body, err = jsonBody(in)
		r.contentType = "application/json"
	} else {
		r.body, r.contentType, err = multipartBody(in.Fields(), "profile_picture", in.Picture)
	}
	if err != nil {
		return nil, newNetworkError(r.op, err)
	}

	var resp authResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{Op: r.op, StatusCode: http.StatusOK, Err: fmt.Errorf("no token in response")}
	}
	return resp.result(), nil
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (*AuthResult, error) {
	body, err := jsonBody(creds)
	if err != nil {
		return nil, newNetworkError("login", err)
	}

	var resp authResponse
	err = c.do(ctx, request{
		op: "login", method: http.MethodPost, path: "/auth/login/",
		body: body, contentType: "application/json",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{Op: "login", StatusCode: http.StatusOK, Err: fmt.Errorf("no token in response")}
	}
	return resp.result(), nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{op: "logout", method: http.MethodPost, path: "/auth/logout/", token: token}, nil)
}

func (c *HTTPClient) CurrentUser(ctx context.Context, token string) (*models.UserRecord, error) {
	var user models.UserRecord
	if err := c.do(ctx, request{op: "get current user", method: http.MethodGet, path: "/auth/user/", token: token}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) CheckAuth(ctx context.Context, token string) (*models.AuthStatus, error) {
	var status models.AuthStatus
	if err := c.do(ctx, request{op: "check auth", method: http.MethodGet, path: "/auth/check/", token: token}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, token string, fields []models.FormField, picture *models.Picture) (*models.UserRecord, error) {
	body, contentType, err := multipartBody(fields, "profile_picture", picture)
	if err != nil {
		return nil, newNetworkError("update profile", err)
	}

	var raw json.RawMessage
	err = c.do(ctx, request{
		op: "update profile", method: http.MethodPatch, path: "/auth/profile/",
		token: token, body: body, contentType: contentType,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeUpdatedUser(raw), nil
}

// decodeUpdatedUser accepts {"user": {...}} or a bare record; nil if neither.
func decodeUpdatedUser(raw json.RawMessage) *models.UserRecord {
	if len(raw) == 0 {
		return nil
	}
	var wrapped struct {
		User *models.UserRecord `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil && wrapped.User.Username != "" {
		return wrapped.User
	}
	var bare models.UserRecord
	if err := json.Unmarshal(raw, &bare); err == nil && bare.Username != "" {
		return &bare
	}
	return nil
}

func (c *HTTPClient) ListPosts(ctx context.Context, token string) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, request{op: "list posts", method: http.MethodGet, path: "/posts/", token: token}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *HTTPClient) GetPost(ctx context.Context, token string, slug string) (*models.Post, error) {
	var post models.Post
	path := "/posts/" + url.PathEscape(slug) + "/"
	if err := c.do(ctx, request{op: "get post", method: http.MethodGet, path: path, token: token}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *HTTPClient) MyPosts(ctx context.Context, token string) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, request{op: "list my posts", method: http.MethodGet, path: "/my-posts/", token: token}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *HTTPClient) CreatePost(ctx context.Context, token string, post models.NewPost) (*models.Post, error) {
	body, err := jsonBody(post)
	if err != nil {
		return nil, newNetworkError("create post", err)
	}

	var created models.Post
	err = c.do(ctx, request{
		op: "create post", method: http.MethodPost, path: "/posts/",
		token: token, body: body, contentType: "application/json",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HTTPClient) UploadImage(ctx context.Context, token string, picture models.Picture) (string, error) {
	body, contentType, err := multipartBody(nil, "image", &picture)
	if err != nil {
		return "", newNetworkError("upload image", err)
	}

	var resp struct {
		URL string `json:"url"`
	}
	err = c.do(ctx, request{
		op: "upload image", method: http.MethodPost, path: "/upload-image/",
		token: token, body: body, contentType: contentType,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", &APIError{Op: "upload image", StatusCode: http.StatusOK, Err: fmt.Errorf("no url in response")}
	}
	return resp.URL, nil
}
