package post

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Column limits of the posts table
const (
	MaxTitleLength   = 255
	MaxContentLength = 1000
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title must be at most 255 characters")
	ErrContentRequired = errors.New("content is required")
	ErrContentTooLong  = errors.New("content must be at most 1000 characters")
)

// Post is a content item owned by the identity that created it
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Author is the public part of the user that wrote a post
type Author struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Entry pairs a post with its author. Author is nil when the row has none.
type Entry struct {
	Post   Post    `json:"post"`
	Author *Author `json:"author"`
}

// NewPost holds the fields supplied by the author
type NewPost struct {
	Title    string
	Content  string
	AuthorID uuid.UUID
}

// Validate trims the input and checks it against the column limits
func (p *NewPost) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)

	switch {
	case p.Title == "":
		return ErrTitleRequired
	case utf8.RuneCountInString(p.Title) > MaxTitleLength:
		return ErrTitleTooLong
	case p.Content == "":
		return ErrContentRequired
	case utf8.RuneCountInString(p.Content) > MaxContentLength:
		return ErrContentTooLong
	}
	return nil
}
