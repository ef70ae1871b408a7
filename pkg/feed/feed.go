// Package feed renders the blog's RSS 2.0 feed and serves it at /blog/rss.xml.
package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/neurofin/website/pkg/content"
)

const (
	// Path is where the feed is served.
	Path = "/blog/rss.xml"

	atomNamespace = "http://www.w3.org/2005/Atom"
)

// ErrNotReady is returned by Bytes before the first successful Refresh.
var ErrNotReady = errors.New("feed has not been rendered yet")

// Channel describes the feed itself.
type Channel struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// DefaultChannel returns the site's channel metadata for origin.
func DefaultChannel(origin string) Channel {
	return Channel{
		Title:       "Appwrite",
		Link:        origin,
		Description: "NeuroFin is an open-source platform for building applications at any scale, using your preferred programming languages and tools.",
	}
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	PubDate     string `xml:"pubDate"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
}

// Render builds the RSS document for posts, in the order given.
// Item links and guids are origin+href; pubDate is an HTTP-date in GMT.
// A trailing slash on origin is ignored.
func Render(ch Channel, origin string, posts []content.Post) ([]byte, error) {
	origin = strings.TrimSuffix(origin, "/")
	doc := rssDocument{
		Version: "2.0",
		Atom:    atomNamespace,
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Items:       make([]rssItem, 0, len(posts)),
		},
	}
	for _, p := range posts {
		link := origin + p.Href
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       p.Title,
			PubDate:     p.Date.UTC().Format(http.TimeFormat),
			Link:        link,
			GUID:        link,
			Description: p.Description,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode rss feed: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

type rendered struct {
	body  []byte
	items int
}

// Feed caches the rendered feed for a post source.
// All methods are safe for concurrent use.
type Feed struct {
	channel Channel
	origin  string
	source  content.Source
	cur     atomic.Pointer[rendered]
}

// New returns a feed over src. Nothing is rendered until Refresh is called.
func New(ch Channel, origin string, src content.Source) *Feed {
	return &Feed{
		channel: ch,
		origin:  strings.TrimSuffix(origin, "/"),
		source:  src,
	}
}

// Refresh reads the posts from the source and swaps in a newly rendered feed.
// On error the previous feed stays in place.
func (f *Feed) Refresh(ctx context.Context) error {
	posts, err := f.source.Posts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load posts: %w", err)
	}
	body, err := Render(f.channel, f.origin, posts)
	if err != nil {
		return err
	}
	f.cur.Store(&rendered{body: body, items: len(posts)})
	return nil
}

// Bytes returns the current feed document. Callers must not modify it.
func (f *Feed) Bytes() ([]byte, error) {
	r := f.cur.Load()
	if r == nil {
		return nil, ErrNotReady
	}
	return r.body, nil
}

// Len returns the number of items in the current feed.
func (f *Feed) Len() int {
	if r := f.cur.Load(); r != nil {
		return r.items
	}
	return 0
}

// ServeHTTP serves the cached feed.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	body, err := f.Bytes()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(body)
}
