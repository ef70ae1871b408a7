package main

import (
	"log/slog"
	"net/http"

	"github.com/neurofin/website/pkg/content"
)

// ContentAPI exposes read-only views of what the site publishes.
type ContentAPI struct {
	server *Server
	logger *slog.Logger
}

// ContentSummary describes the currently served sitemap and feed.
type ContentSummary struct {
	Origin           string `json:"origin"`
	Source           string `json:"source"`
	Routes           int    `json:"routes"`
	Posts            int    `json:"posts"`
	AppwriteEndpoint string `json:"appwrite_endpoint,omitempty"`
}

func NewContentAPI(server *Server, logger *slog.Logger) *ContentAPI {
	return &ContentAPI{
		server: server,
		logger: logger.With("component", "content_api"),
	}
}

// RegisterRoutes sets up the routing for all /api/content endpoints.
func (a *ContentAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/content/posts", a.handlePosts)
	mux.HandleFunc("GET /api/content/summary", a.handleSummary)
}

func (a *ContentAPI) handlePosts(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeContentRead) {
		return
	}
	posts, err := a.server.source.Posts(r.Context())
	if err != nil {
		a.logger.Error("Failed to list posts", "error", err)
		respondWithError(w, http.StatusBadGateway, "Failed to read posts from the content source")
		return
	}
	if posts == nil {
		posts = []content.Post{}
	}
	respondWithJSON(w, http.StatusOK, posts)
}

func (a *ContentAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeContentRead) {
		return
	}
	cfg := a.server.cm.Get()
	summary := ContentSummary{
		Origin: a.server.sitemap.Origin(),
		Source: cfg.Content.Source,
		Routes: a.server.sitemap.Len(),
		Posts:  a.server.feed.Len(),
	}
	if a.server.appwrite != nil {
		summary.AppwriteEndpoint = a.server.appwrite.Databases.Endpoint()
	}
	respondWithJSON(w, http.StatusOK, summary)
}
