// Package content holds the blog posts listed by the site's feed and the
// sources they can be read from.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a post does not exist.
	ErrNotFound = errors.New("post not found")

	// ErrInvalidPost is returned when a post is missing required fields.
	ErrInvalidPost = errors.New("invalid post")
)

// Post is one blog post as it appears in the feed.
type Post struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Href        string    `json:"href"`
	Description string    `json:"description"`
}

// Validate reports whether the post can be published.
func (p Post) Validate() error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidPost)
	case !strings.HasPrefix(p.Href, "/"):
		return fmt.Errorf("%w: href %q must start with /", ErrInvalidPost, p.Href)
	case p.Date.IsZero():
		return fmt.Errorf("%w: %s has no date", ErrInvalidPost, p.Href)
	}
	return nil
}

// Source is anything the feed can read posts from.
type Source interface {
	Posts(ctx context.Context) ([]Post, error)
}

// Static is a fixed, in-memory list of posts.
type Static []Post

// Posts returns a copy of the list, newest first.
func (s Static) Posts(_ context.Context) ([]Post, error) {
	out := make([]Post, len(s))
	copy(out, s)
	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders posts by date descending, then by href for a stable result.
func SortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Href < posts[j].Href
	})
}
