package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Content constraints, in characters.
const (
	PostTitleMinLength   = 5
	PostTitleMaxLength   = 100
	PostContentMinLength = 10
	PostContentMaxLength = 1000
	ReplyMinLength       = 3
	ReplyMaxLength       = 1000
)

// AuthorKind tells who wrote a piece of content.
type AuthorKind string

const (
	AuthorUser  AuthorKind = "user"
	AuthorStaff AuthorKind = "staff"

	// AuthorSystem marks content created by the site itself (seed data).
	// System-authored content has no owner; only privileged principals may change it.
	AuthorSystem AuthorKind = "system"
)

// Author stamps forum content with its creator.
type Author struct {
	ID   string     `json:"id,omitempty"`
	Name string     `json:"name"`
	Kind AuthorKind `json:"kind"`
}

// SystemAuthor returns the author used for site-generated content.
func SystemAuthor(name string) Author {
	return Author{Name: name, Kind: AuthorSystem}
}

// IsOwnedBy reports whether p authored the content.
func (a Author) IsOwnedBy(p *Principal) bool {
	if p == nil || a.Kind == AuthorSystem || a.ID == "" {
		return false
	}
	return a.ID == p.ID
}

// Reply is an append-only answer embedded in its parent post.
type Reply struct {
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a forum thread.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPost creates a post stamped with author and the current time.
func NewPost(title, content string, author Author) *Post {
	now := time.Now().UTC()
	return &Post{
		Title:     strings.TrimSpace(title),
		Content:   strings.TrimSpace(content),
		Author:    author,
		Replies:   []Reply{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks title and content lengths.
func (p *Post) Validate() error {
	if err := ValidatePostTitle(p.Title); err != nil {
		return err
	}
	return ValidatePostContent(p.Content)
}

// ValidatePostTitle checks the title length.
func ValidatePostTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	switch {
	case n == 0:
		return NewValidationError("title", "title is required")
	case n < PostTitleMinLength:
		return NewValidationError("title", "title must be at least %d characters", PostTitleMinLength)
	case n > PostTitleMaxLength:
		return NewValidationError("title", "title must be at most %d characters", PostTitleMaxLength)
	}
	return nil
}

// ValidatePostContent checks the body length.
func ValidatePostContent(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	switch {
	case n == 0:
		return NewValidationError("content", "content is required")
	case n < PostContentMinLength:
		return NewValidationError("content", "content must be at least %d characters", PostContentMinLength)
	case n > PostContentMaxLength:
		return NewValidationError("content", "content must be at most %d characters", PostContentMaxLength)
	}
	return nil
}

// ValidateReply checks the reply length.
func ValidateReply(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	switch {
	case n == 0:
		return NewValidationError("content", "reply is required")
	case n < ReplyMinLength:
		return NewValidationError("content", "reply must be at least %d characters", ReplyMinLength)
	case n > ReplyMaxLength:
		return NewValidationError("content", "reply must be at most %d characters", ReplyMaxLength)
	}
	return nil
}

// Matches reports whether the lowercase needle appears in title, content or author name.
func (p *Post) Matches(needle string) bool {
	return containsFold(p.Title, needle) ||
		containsFold(p.Content, needle) ||
		containsFold(p.Author.Name, needle)
}

// containsFold is a case-insensitive substring test. An empty needle matches everything.
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// DefaultPosts returns the threads seeded on first run.
func DefaultPosts() []*Post {
	admin := SystemAuthor("Admin")
	return []*Post{
		NewPost(
			"[Guide] How to protect your hearts in Lifesteal",
			"Share strategies to avoid losing hearts: teamplay, smart kits and tactical retreats.",
			admin,
		),
		NewPost(
			"Weekend event proposals",
			"Mini tournaments, treasure hunts and drop parties: tell us what you think!",
			admin,
		),
	}
}
