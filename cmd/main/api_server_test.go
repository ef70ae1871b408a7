package main

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestServerAPI_Config(t *testing.T) {
	server, env := setupTestServer(t)
	h := server.APIHandler()

	rr := apiRequest(t, h, http.MethodGet, "/api/server/config", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var cfg Config
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}
	if cfg.Site.ManifestPath != env.manifestPath {
		t.Errorf("unexpected manifest path %q", cfg.Site.ManifestPath)
	}

	update := map[string]any{"server_config": map[string]any{"watch": true}}
	if rr = apiRequest(t, h, http.MethodPut, "/api/server/config", "", update); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d: %s", rr.Code, rr.Body.String())
	}
	saved, err := LoadConfig(env.configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !saved.Server.Watch {
		t.Error("config update was not written to disk")
	}
	if saved.Site.ManifestPath != env.manifestPath {
		t.Error("partial update must keep the other settings")
	}

	bad := map[string]any{"site_config": map[string]any{"origin": "ftp://neurofin.cloud"}}
	if rr = apiRequest(t, h, http.MethodPut, "/api/server/config", "", bad); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid origin, got %d", rr.Code)
	}
}

func TestServerAPI_Version(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := apiRequest(t, server.APIHandler(), http.MethodGet, "/api/server/version", "", nil)
	var info VersionInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if info.Version != Version || info.Commit != Commit {
		t.Errorf("unexpected version info %+v", info)
	}
}

func TestServerAPI_Reload(t *testing.T) {
	server, env := setupTestServer(t)
	h := server.APIHandler()

	env.writeFile(t, env.manifestPath, `{"prerendered":["/"]}`)
	rr := apiRequest(t, h, http.MethodPost, "/api/server/reload", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var counts map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &counts); err != nil {
		t.Fatalf("failed to decode reload response: %v", err)
	}
	if counts["routes"] != 1 || counts["posts"] != 2 {
		t.Errorf("unexpected reload counts %v", counts)
	}

	env.writeFile(t, env.manifestPath, `{"prerendered":`)
	if rr = apiRequest(t, h, http.MethodPost, "/api/server/reload", "", nil); rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for a broken manifest, got %d", rr.Code)
	}
	if server.sitemap.Len() != 1 {
		t.Errorf("failed reload replaced the sitemap, has %d routes", server.sitemap.Len())
	}
}

func TestServerAPI_Actions(t *testing.T) {
	tests := map[string]string{
		"/api/server/shutdown": actionShutdown,
		"/api/server/restart":  actionRestart,
	}
	for path, want := range tests {
		t.Run(want, func(t *testing.T) {
			server, _ := setupTestServer(t)

			rr := apiRequest(t, server.APIHandler(), http.MethodPost, path, "", nil)
			if rr.Code != http.StatusAccepted {
				t.Fatalf("expected 202, got %d", rr.Code)
			}
			select {
			case got := <-server.serverAPI.actionChan:
				if got != want {
					t.Errorf("expected action %q, got %q", want, got)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("no action was sent")
			}
		})
	}
}
