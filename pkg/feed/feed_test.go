package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/neurofin/website/pkg/content"
)

const testOrigin = "https://neurofin.cloud"

func testPosts() []content.Post {
	return []content.Post{
		{Title: "Launch day", Date: time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC), Href: "/blog/launch", Description: "We are live."},
		{Title: "Q&A <recap>", Date: time.Date(2024, time.April, 2, 8, 15, 0, 0, time.FixedZone("CEST", 2*3600)), Href: "/blog/recap", Description: "Answers."},
	}
}

func TestRender(t *testing.T) {
	body, err := Render(DefaultChannel(testOrigin), testOrigin, testPosts())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := string(body)

	if n := strings.Count(out, "<item>"); n != 2 {
		t.Errorf("expected 2 <item> elements, got %d", n)
	}
	if !strings.Contains(out, `<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`) {
		t.Errorf("missing rss root element, got:\n%s", out)
	}
	if !strings.Contains(out, "<pubDate>Wed, 01 May 2024 12:00:00 GMT</pubDate>") {
		t.Errorf("first pubDate not rendered as an HTTP-date:\n%s", out)
	}
	if !strings.Contains(out, "<pubDate>Tue, 02 Apr 2024 06:15:00 GMT</pubDate>") {
		t.Errorf("second pubDate not converted to GMT:\n%s", out)
	}
	if !strings.Contains(out, "Q&amp;A &lt;recap&gt;") {
		t.Errorf("title was not escaped:\n%s", out)
	}

	var doc rssDocument
	if err = xml.Unmarshal(body, &doc); err != nil {
		t.Fatalf("rendered feed is not valid xml: %v", err)
	}
	if doc.Channel.Title != "Appwrite" || doc.Channel.Link != testOrigin {
		t.Errorf("unexpected channel: %+v", doc.Channel)
	}
	first := doc.Channel.Items[0]
	if first.Link != testOrigin+"/blog/launch" || first.GUID != first.Link {
		t.Errorf("unexpected link/guid: %q / %q", first.Link, first.GUID)
	}
	if _, err = time.Parse(http.TimeFormat, first.PubDate); err != nil {
		t.Errorf("pubDate %q does not parse as an HTTP-date: %v", first.PubDate, err)
	}
}

func TestRender_OriginTrailingSlash(t *testing.T) {
	body, err := Render(DefaultChannel(testOrigin), testOrigin+"/", testPosts())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(string(body), "neurofin.cloud//") {
		t.Errorf("origin slash was doubled:\n%s", body)
	}
	if !strings.Contains(string(body), "<guid>"+testOrigin+"/blog/launch</guid>") {
		t.Errorf("missing launch guid:\n%s", body)
	}
}

func TestRender_NoPosts(t *testing.T) {
	body, err := Render(DefaultChannel(testOrigin), testOrigin, nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(string(body), "<item>") {
		t.Error("expected no items")
	}
	if !strings.Contains(string(body), "<channel>") {
		t.Error("expected a channel element")
	}
}

type flakySource struct {
	posts []content.Post
	err   error
}

func (s *flakySource) Posts(context.Context) ([]content.Post, error) {
	return s.posts, s.err
}

func TestFeed_Refresh(t *testing.T) {
	src := &flakySource{posts: testPosts()}
	f := New(DefaultChannel(testOrigin), testOrigin+"/", src)

	if _, err := f.Bytes(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before refresh, got %v", err)
	}

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if f.Len() != 2 {
		t.Errorf("expected 2 items, got %d", f.Len())
	}
	before, _ := f.Bytes()
	if !strings.Contains(string(before), "<link>"+testOrigin+"/blog/launch</link>") {
		t.Error("origin trailing slash should be trimmed before joining hrefs")
	}

	src.err = errors.New("source down")
	if err := f.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	after, _ := f.Bytes()
	if string(after) != string(before) {
		t.Error("failed refresh must keep the previous feed")
	}
}

func TestFeed_ServeHTTP(t *testing.T) {
	f := New(DefaultChannel(testOrigin), testOrigin, content.Static(testPosts()))

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before first refresh, got %d", rec.Code)
	}

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	rec = httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("expected application/xml, got %q", ct)
	}
	if strings.Count(rec.Body.String(), "<item>") != 2 {
		t.Error("expected two items in served feed")
	}

	rec = httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, Path, nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
