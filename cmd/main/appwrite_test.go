package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/neurofin/website/pkg/appwrite"
)

// useAppwriteSource switches env's config to the appwrite content source.
func useAppwriteSource(t *testing.T, env *testEnv) *ConfigManager {
	t.Helper()
	cm, err := NewConfigManager(env.configPath)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	cfg := cm.Get()
	cfg.Content.Source = sourceAppwrite
	cfg.Content.PostsPath = ""
	if err = cm.Update(cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return cm
}

func TestNewServer_AppwriteMissingCredentials(t *testing.T) {
	t.Setenv("PUBLIC_APPWRITE_PROJECT_INIT_ID", "")
	t.Setenv("APPWRITE_API_KEY_INIT", "")

	env := newTestEnv(t)
	cm := useAppwriteSource(t, env)
	db, err := initDB(env.config.Server.DatabasePath)
	if err != nil {
		t.Fatalf("initDB failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	_, err = NewServer(context.Background(), cm, newLogger("error"), db, make(chan string, 1))
	if !errors.Is(err, appwrite.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNewServer_FileSourceIgnoresAppwriteCredentials(t *testing.T) {
	t.Setenv("PUBLIC_APPWRITE_PROJECT_INIT_ID", "")
	t.Setenv("APPWRITE_API_KEY_INIT", "")

	server, _ := setupTestServer(t)
	if server.appwrite != nil {
		t.Error("file source should not build an appwrite client")
	}
}

func TestNewServer_AppwriteFeed(t *testing.T) {
	var (
		mu         sync.Mutex
		gotQueries []string
	)
	aw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/databases/site/collections/posts/documents" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Appwrite-Project") != "proj" || r.Header.Get("X-Appwrite-Key") != "secret" {
			http.Error(w, `{"message":"unauthorized","code":401}`, http.StatusUnauthorized)
			return
		}
		mu.Lock()
		gotQueries = r.URL.Query()["queries[]"]
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":1,"documents":[{"$id":"p1","title":"From Appwrite",` +
			`"date":"2024-07-01T10:00:00.000+00:00","href":"/blog/appwrite","description":"Served remotely."}]}`))
	}))
	defer aw.Close()

	t.Setenv("APPWRITE_ENDPOINT", aw.URL+"/v1")
	t.Setenv("PUBLIC_APPWRITE_PROJECT_INIT_ID", "proj")
	t.Setenv("APPWRITE_API_KEY_INIT", "secret")

	env := newTestEnv(t)
	cm := useAppwriteSource(t, env)
	db, err := initDB(env.config.Server.DatabasePath)
	if err != nil {
		t.Fatalf("initDB failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	server, err := NewServer(context.Background(), cm, newLogger("error"), db, make(chan string, 1))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	mu.Lock()
	if len(gotQueries) != 2 {
		t.Errorf("expected order and limit queries, got %v", gotQueries)
	}
	mu.Unlock()

	rr := httptest.NewRecorder()
	server.SiteHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/blog/rss.xml", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	if n := strings.Count(body, "<item>"); n != 1 {
		t.Errorf("expected 1 item, got %d:\n%s", n, body)
	}
	if !strings.Contains(body, "<link>https://neurofin.cloud/blog/appwrite</link>") {
		t.Errorf("missing appwrite post link:\n%s", body)
	}
	if !strings.Contains(body, "<pubDate>Mon, 01 Jul 2024 10:00:00 GMT</pubDate>") {
		t.Errorf("missing appwrite post date:\n%s", body)
	}

	count, err := server.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("appwrite posts should not be synced into the store, found %d", count)
	}

	summary := apiRequest(t, server.APIHandler(), http.MethodGet, "/api/content/summary", "", nil)
	if !strings.Contains(summary.Body.String(), `"appwrite_endpoint":"`+aw.URL+`/v1"`) {
		t.Errorf("summary does not report the appwrite endpoint: %s", summary.Body.String())
	}
}
