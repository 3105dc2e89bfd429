package models

import "time"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post is a blog post as returned by the content API.
type Post struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	CoverImage  string    `json:"cover_image,omitempty"`
	Status      string    `json:"status,omitempty"`
	Author      string    `json:"author,omitempty"`
	IsPublished bool      `json:"is_published"`
	Category    *Category `json:"category,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPost is the body of a post creation request.
type NewPost struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Excerpt     string `json:"excerpt"`
	IsPublished bool   `json:"is_published"`
}
