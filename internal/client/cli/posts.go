package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/client/services"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

// Home prints the feed. The auth check runs alongside the feed request so the
// greeting reflects what the server thinks of the token.
func (a *App) Home(ctx context.Context) error {
	var (
		posts  []models.Post
		status models.AuthStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = a.content.ListPosts(gctx)
		return err
	})
	g.Go(func() error {
		status = a.session.CheckAuth(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		printError(err)
		return err
	}

	if status.Authenticated {
		name := status.Username
		if u, ok := a.session.CachedUser(); ok {
			name = u.DisplayName()
		}
		printlnFn(fmt.Sprintf("Hello, %s!", name))
	}

	if len(posts) == 0 {
		printlnFn("No posts yet.")
		return nil
	}
	for _, p := range posts {
		printPostLine(p)
	}
	return nil
}

// Show prints one post.
func (a *App) Show(ctx context.Context, slug string) error {
	p, err := a.content.GetPost(ctx, slug)
	if err != nil {
		printError(err)
		return err
	}
	if p == nil {
		printlnFn("Post not found:", slug)
		return nil
	}

	printlnFn(p.Title)
	printlnFn(fmt.Sprintf("by %s on %s", authorOf(p), p.CreatedAt.Format(dateLayout)))
	if p.CoverImage != "" {
		printlnFn("Cover:", p.CoverImage)
	}
	printlnFn()
	printlnFn(p.Content)
	return nil
}

// MyPosts lists the user's own posts, drafts included.
func (a *App) MyPosts(ctx context.Context) error {
	posts, err := a.content.MyPosts(ctx)
	if errors.Is(err, services.ErrUnauthenticated) {
		if err := a.loginFirst(ctx); err != nil {
			return err
		}
		posts, err = a.content.MyPosts(ctx)
	}
	if err != nil {
		printError(err)
		return err
	}

	if len(posts) == 0 {
		printlnFn("You have not written any posts yet.")
		return nil
	}
	for _, p := range posts {
		printPostLine(p)
	}
	return nil
}

// Create composes a post: title, body, optional images appended to the body
// as markdown, excerpt, and whether to publish it right away.
func (a *App) Create(ctx context.Context) error {
	if !a.isLoggedIn() {
		if err := a.loginFirst(ctx); err != nil {
			return err
		}
	}

	var post models.NewPost
	var err error

	if post.Title, err = getSimpleText(a.reader, "Title", os.Stdout); err != nil {
		return err
	}
	if post.Content, err = GetMultiline(a.reader, "Content (markdown)", os.Stdout); err != nil {
		return err
	}

	for {
		path, err := getSimpleText(a.reader, "Image to upload (path, empty to finish)", os.Stdout)
		if err != nil {
			return err
		}
		if path == "" {
			break
		}
		pic, err := loadPicture(path)
		if err != nil {
			printError(err)
			continue
		}
		url, err := a.content.UploadImage(ctx, pic)
		if err != nil {
			printError(err)
			continue
		}
		post.Content = appendLine(post.Content, services.ImageMarkdown(pic.Filename, url))
		printlnFn("Uploaded:", url)
	}

	if post.Excerpt, err = getSimpleText(a.reader, "Excerpt (optional)", os.Stdout); err != nil {
		return err
	}
	if post.IsPublished, err = GetYesNo(a.reader, "Publish now?", os.Stdout); err != nil {
		return err
	}

	p, err := a.content.CreatePost(ctx, post)
	if err != nil {
		printError(err)
		return err
	}

	state := "draft"
	if p.IsPublished {
		state = "published"
	}
	printlnFn(fmt.Sprintf("Created %s post %q (%s)", state, p.Title, p.Slug))
	return nil
}

func printPostLine(p models.Post) {
	line := fmt.Sprintf("- %s [%s] by %s, %s", p.Title, p.Slug, authorOf(&p), p.CreatedAt.Format(dateLayout))
	if st := postStatus(p); st != "published" {
		line += fmt.Sprintf(" (%s)", st)
	}
	printlnFn(line)
	if t := taxonomy(p); t != "" {
		printlnFn("    " + t)
	}
	if p.Excerpt != "" {
		printlnFn("    " + p.Excerpt)
	}
}

// maxTags is how many tag names a post line shows before collapsing the
// rest into "+N".
const maxTags = 3

// postStatus prefers the server's status string and falls back to the
// is_published flag.
func postStatus(p models.Post) string {
	if p.Status != "" {
		return p.Status
	}
	if p.IsPublished {
		return "published"
	}
	return "draft"
}

func taxonomy(p models.Post) string {
	var parts []string
	if p.Category != nil && p.Category.Name != "" {
		parts = append(parts, "Category: "+p.Category.Name)
	}
	if len(p.Tags) > 0 {
		names := make([]string, 0, maxTags+1)
		for i, t := range p.Tags {
			if i == maxTags {
				names = append(names, fmt.Sprintf("+%d", len(p.Tags)-maxTags))
				break
			}
			names = append(names, t.Name)
		}
		parts = append(parts, "Tags: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "; ")
}

func authorOf(p *models.Post) string {
	if p.Author == "" {
		return "unknown"
	}
	return p.Author
}

func appendLine(text, line string) string {
	if strings.TrimSpace(text) == "" {
		return line
	}
	return text + "\n\n" + line
}
