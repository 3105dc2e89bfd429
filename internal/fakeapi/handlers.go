package fakeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/common"
)

type fieldErrors map[string][]string

const required = "This field is required."

// form is the text fields and the first file of a request, whatever the
// body encoding.
type form struct {
	values   map[string]string
	filename string
	file     []byte
}

func readForm(r *http.Request, fileField string) (*form, error) {
	f := &form{values: make(map[string]string)}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			return nil, err
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				f.values[k] = v[0]
			}
		}
		if headers := r.MultipartForm.File[fileField]; len(headers) > 0 {
			file, err := headers[0].Open()
			if err != nil {
				return nil, err
			}
			defer file.Close()
			if f.file, err = io.ReadAll(file); err != nil {
				return nil, err
			}
			f.filename = headers[0].Filename
		}
	case mediaType == "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			if s, ok := v.(string); ok {
				f.values[k] = s
			}
		}
	}
	return f, nil
}

func multipartKeys(body []byte, boundary string) ([]string, error) {
	if boundary == "" {
		return nil, errors.New("missing multipart boundary")
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	var keys []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, part.FormName())
		_ = part.Close()
	}
}

func authorOf(u models.UserRecord) *models.AuthorProfile {
	p := u.Profile()
	return &p
}

// wireUser renders a record the way the user endpoints do: profile nested
// under author_profile.
func wireUser(u models.UserRecord) models.UserRecord {
	c := u.Clone()
	if c.AuthorProfile == nil {
		c.AuthorProfile = &models.AuthorProfile{}
	}
	return c
}

// authPayload renders a login/register response: the profile as a sibling
// "author" object.
func authPayload(token string, u models.UserRecord) map[string]any {
	return map[string]any{
		"token": token,
		"user": map[string]any{
			"username":   u.Username,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
		},
		"author": authorOf(u),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r, "profile_picture")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	errs := fieldErrors{}
	for _, name := range []string{"username", "email", "password"} {
		if strings.TrimSpace(f.values[name]) == "" {
			errs[name] = []string{required}
		}
	}
	if p := f.values["password"]; p != "" && len(p) < 8 {
		errs["password"] = []string{"Ensure this field has at least 8 characters."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.accounts[f.values["username"]]; taken {
		errs["username"] = []string{"A user with that username already exists."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	u := models.UserRecord{
		Username:  f.values["username"],
		Email:     f.values["email"],
		FirstName: f.values["first_name"],
		LastName:  f.values["last_name"],
		AuthorProfile: &models.AuthorProfile{
			Bio: f.values["bio"],
		},
	}
	if len(f.file) > 0 {
		u.AuthorProfile.ProfilePictureURL = s.storeMediaLocked("profile_pictures", f.filename, f.file)
	}
	s.accounts[u.Username] = &account{password: f.values["password"], user: u}

	writeJSON(w, http.StatusCreated, authPayload(s.issueTokenLocked(u.Username), u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Malformed request body."})
		return
	}

	errs := fieldErrors{}
	if creds.Identifier == "" {
		errs["identifier"] = []string{required}
	}
	if creds.Password == "" {
		errs["password"] = []string{required}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if (a.user.Username == creds.Identifier || a.user.Email == creds.Identifier) && a.password == creds.Password {
			writeJSON(w, http.StatusOK, authPayload(s.issueTokenLocked(a.user.Username), a.user))
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Invalid credentials"}})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), common.TokenScheme+" ")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		unauthorized(w)
		return
	}
	delete(s.tokens, token)
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Successfully logged out."})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	username := s.userFor(r)
	if username == "" {
		unauthorized(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, wireUser(s.accounts[username].user))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	username := s.userFor(r)
	if username == "" {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, models.AuthStatus{Authenticated: true, Username: username})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := s.userFor(r)
	if username == "" {
		unauthorized(w)
		return
	}

	f, err := readForm(r, "profile_picture")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Profile update failed"})
		return
	}

	if website, ok := f.values["website"]; ok && !strings.HasPrefix(website, "http") {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"website": {"Enter a valid URL."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := &s.accounts[username].user
	if u.AuthorProfile == nil {
		u.AuthorProfile = &models.AuthorProfile{}
	}
	for k, v := range f.values {
		switch k {
		case "first_name":
			u.FirstName = v
		case "last_name":
			u.LastName = v
		case "bio":
			u.AuthorProfile.Bio = v
		case "website":
			u.AuthorProfile.Website = v
		case "twitter_handle":
			u.AuthorProfile.TwitterHandle = v
		}
	}
	if len(f.file) > 0 {
		u.AuthorProfile.ProfilePictureURL = s.storeMediaLocked("profile_pictures", f.filename, f.file)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    wireUser(*u),
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sortedPostsLocked(func(p models.Post) bool { return p.IsPublished }))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		if p.Slug == slug {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in models.NewPost
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Malformed request body."})
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"title": {required}})
		return
	}

	author := s.userFor(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.addPostLocked(models.Post{
		Title:       in.Title,
		Content:     in.Content,
		Excerpt:     in.Excerpt,
		IsPublished: in.IsPublished,
		Author:      author,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleMyPosts(w http.ResponseWriter, r *http.Request) {
	username := s.userFor(r)
	if username == "" {
		unauthorized(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sortedPostsLocked(func(p models.Post) bool { return p.Author == username }))
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r, "image")
	if err != nil || len(f.file) == 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"image": {"No file was submitted."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"url": s.storeMediaLocked("uploads", f.filename, f.file)})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, ok := s.media[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
