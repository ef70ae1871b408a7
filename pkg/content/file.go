package content

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// dateLayouts are accepted for the date field of a content file, most precise first.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04", time.DateOnly}

type fileDTO struct {
	Posts []postDTO `yaml:"posts"`
}

type postDTO struct {
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Href        string `yaml:"href"`
	Description string `yaml:"description"`
}

// LoadFile reads the posts listed in a YAML content file:
//
//	posts:
//	  - title: Launch
//	    date: 2024-05-01
//	    href: /blog/launch
//	    description: We are live.
//
// Every post is validated; the first invalid one fails the whole file.
func LoadFile(path string) ([]Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}

	var dto fileDTO
	if err = yaml.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse content file %s: %w", path, err)
	}

	posts := make([]Post, 0, len(dto.Posts))
	seen := make(map[string]struct{}, len(dto.Posts))
	for i, d := range dto.Posts {
		date, err := ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("post %d (%s): %w", i, d.Href, err)
		}
		p := Post{
			Title:       strings.TrimSpace(d.Title),
			Date:        date,
			Href:        strings.TrimSpace(d.Href),
			Description: strings.TrimSpace(d.Description),
		}
		if err = p.Validate(); err != nil {
			return nil, fmt.Errorf("post %d: %w", i, err)
		}
		if _, dup := seen[p.Href]; dup {
			return nil, fmt.Errorf("post %d: %w: duplicate href %s", i, ErrInvalidPost, p.Href)
		}
		seen[p.Href] = struct{}{}
		posts = append(posts, p)
	}
	SortNewestFirst(posts)
	return posts, nil
}

// ParseDate parses a post date in any of the accepted layouts and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidPost)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", ErrInvalidPost, s)
}
