package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/client/client"
	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
)

// TokenSource supplies the current session token, "" when anonymous.
type TokenSource interface {
	Token() string
}

// ContentService reads and writes posts on behalf of the current session.
type ContentService struct {
	client       client.Client
	tokens       TokenSource
	mediaBaseURL string
	timeout      time.Duration
	log          logging.Logger
}

func NewContentService(c client.Client, tokens TokenSource, mediaBaseURL string, timeout time.Duration, log logging.Logger) *ContentService {
	if log == nil {
		log = logging.Nop()
	}
	return &ContentService{
		client:       c,
		tokens:       tokens,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
		timeout:      timeout,
		log:          log,
	}
}

func (s *ContentService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ListPosts returns the published feed, newest first.
func (s *ContentService) ListPosts(ctx context.Context) ([]models.Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	posts, err := s.client.ListPosts(ctx, s.tokens.Token())
	if err != nil {
		return nil, err
	}
	for i := range posts {
		s.rewrite(&posts[i])
	}
	return posts, nil
}

// GetPost returns (nil, nil) when no post has the slug.
func (s *ContentService) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("%w: empty slug", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.client.GetPost(ctx, s.tokens.Token(), slug)
	if errors.Is(err, client.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.rewrite(p)
	return p, nil
}

// MyPosts lists the caller's posts, drafts included.
func (s *ContentService) MyPosts(ctx context.Context) ([]models.Post, error) {
	token := s.tokens.Token()
	if token == "" {
		return nil, ErrUnauthenticated
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	posts, err := s.client.MyPosts(ctx, token)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		s.rewrite(&posts[i])
	}
	return posts, nil
}

func (s *ContentService) CreatePost(ctx context.Context, post models.NewPost) (*models.Post, error) {
	if strings.TrimSpace(post.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.client.CreatePost(ctx, s.tokens.Token(), post)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "post created", "slug", p.Slug)
	s.rewrite(p)
	return p, nil
}

// UploadImage stores an image for use in a post body and returns its URL.
func (s *ContentService) UploadImage(ctx context.Context, picture *models.Picture) (string, error) {
	if picture.Empty() {
		return "", fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.client.UploadImage(ctx, s.tokens.Token(), *picture)
}

func (s *ContentService) rewrite(p *models.Post) {
	p.Content = RewriteMediaURLs(p.Content, s.mediaBaseURL)
	if strings.HasPrefix(p.CoverImage, "/media/") {
		p.CoverImage = s.mediaBaseURL + p.CoverImage
	}
}

// RewriteMediaURLs points relative /media/ references in HTML src
// attributes and markdown image links at base.
func RewriteMediaURLs(content, base string) string {
	if base == "" || !strings.Contains(content, "/media/") {
		return content
	}
	r := strings.NewReplacer(
		`src="/media/`, `src="`+base+`/media/`,
		`src='/media/`, `src='`+base+`/media/`,
		`](/media/`, `](`+base+`/media/`,
	)
	return r.Replace(content)
}

// ImageMarkdown is the snippet appended to a post body after an upload.
func ImageMarkdown(name, url string) string {
	return fmt.Sprintf("![%s](%s)", name, url)
}
