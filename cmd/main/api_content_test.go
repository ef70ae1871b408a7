package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/neurofin/website/pkg/content"
)

func TestContentAPI_Posts(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := apiRequest(t, server.APIHandler(), http.MethodGet, "/api/content/posts", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var posts []content.Post
	if err := json.Unmarshal(rr.Body.Bytes(), &posts); err != nil {
		t.Fatalf("failed to decode posts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Href != "/blog/roadmap" || posts[1].Href != "/blog/launch" {
		t.Errorf("expected newest first, got %s then %s", posts[0].Href, posts[1].Href)
	}
	if posts[0].ID == 0 {
		t.Error("posts served from the store should carry their row id")
	}
}

func TestContentAPI_Summary(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := apiRequest(t, server.APIHandler(), http.MethodGet, "/api/content/summary", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var summary ContentSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	want := ContentSummary{Origin: "https://neurofin.cloud", Source: sourceFile, Routes: 4, Posts: 2}
	if summary != want {
		t.Errorf("expected %+v, got %+v", want, summary)
	}
}
