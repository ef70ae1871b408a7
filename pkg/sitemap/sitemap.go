package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	// Path is the request path the middleware answers.
	Path = "/sitemap.xml"

	// Namespace is the sitemaps.org schema for urlset documents.
	Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	dataSuffix = ".json"
)

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc string `xml:"loc"`
}

// Routes returns the routes that belong in the sitemap, in their original order.
// Data endpoints ending in ".json" are dropped. Duplicates are kept.
func Routes(routes []string) []string {
	out := make([]string, 0, len(routes))
	for _, route := range routes {
		if strings.HasSuffix(route, dataSuffix) {
			continue
		}
		out = append(out, route)
	}
	return out
}

// Render builds a complete sitemap document listing origin+route for every
// route that passes Routes. A trailing slash on origin is ignored.
func Render(origin string, routes []string) ([]byte, error) {
	origin = strings.TrimSuffix(origin, "/")
	set := urlSet{Xmlns: Namespace}
	for _, route := range Routes(routes) {
		set.URLs = append(set.URLs, urlEntry{Loc: origin + route})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

type document struct {
	body  []byte
	count int
}

// Sitemap holds the rendered sitemap for one origin.
// All methods are safe for concurrent use.
type Sitemap struct {
	origin string
	doc    atomic.Pointer[document]
}

// New renders the sitemap for origin and routes.
func New(origin string, routes []string) (*Sitemap, error) {
	s := &Sitemap{origin: strings.TrimSuffix(origin, "/")}
	if err := s.Update(routes); err != nil {
		return nil, err
	}
	return s, nil
}

// Update re-renders the sitemap from a new route list and swaps it in.
// On error the previous document is kept.
func (s *Sitemap) Update(routes []string) error {
	body, err := Render(s.origin, routes)
	if err != nil {
		return err
	}
	s.doc.Store(&document{body: body, count: len(Routes(routes))})
	return nil
}

// Origin returns the site origin prefixed to every route.
func (s *Sitemap) Origin() string {
	return s.origin
}

// Bytes returns the current document. Callers must not modify it.
func (s *Sitemap) Bytes() []byte {
	return s.doc.Load().body
}

// Len returns the number of <loc> entries in the current document.
func (s *Sitemap) Len() int {
	return s.doc.Load().count
}

// Middleware answers requests for /sitemap.xml and hands every other request to next.
func (s *Sitemap) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != Path {
			next.ServeHTTP(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			body := s.Bytes()
			w.Header().Set("Content-Type", "application/xml")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusOK)
				return
			}
			_, _ = w.Write(body)
		default:
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})
}
