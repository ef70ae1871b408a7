package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// ServerAPI holds the dependencies for the server control handlers.
type ServerAPI struct {
	cm         *ConfigManager
	actionChan chan string
	server     *Server
	logger     *slog.Logger
	startedAt  time.Time
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(cm *ConfigManager, actionChan chan string, server *Server, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		cm:         cm,
		actionChan: actionChan,
		server:     server,
		logger:     logger.With("component", "server_api"),
		startedAt:  time.Now(),
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/server/config", a.handleGetConfig)
	mux.HandleFunc("PUT /api/server/config", a.handleUpdateConfig)
	mux.HandleFunc("GET /api/server/version", a.handleVersion)
	mux.HandleFunc("POST /api/server/reload", a.handleReload)
	mux.HandleFunc("POST /api/server/shutdown", a.handleShutdown)
	mux.HandleFunc("POST /api/server/restart", a.handleRestart)
}

// handleHealthCheck is unauthenticated so container runtimes can probe it.
func (a *ServerAPI) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.server.db.PingContext(r.Context()); err != nil {
		a.logger.Error("Health check failed", "error", err)
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"uptime":      time.Since(a.startedAt).Round(time.Second).String(),
		"last_reload": a.server.LastReload().UTC().Format(time.RFC3339),
	})
}

func (a *ServerAPI) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeServerConfig) {
		return
	}
	respondWithJSON(w, http.StatusOK, a.cm.Get())
}

// handleUpdateConfig validates and persists a new configuration. It takes
// effect on the next restart.
func (a *ServerAPI) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeServerConfig) {
		return
	}

	newConfig := a.cm.Get()
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if err := newConfig.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.cm.Update(newConfig); err != nil {
		a.logger.Error("Failed to save configuration", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save configuration to disk")
		return
	}

	a.logger.Info("Configuration updated via API. Restart to apply.")
	respondWithJSON(w, http.StatusOK, a.cm.Get())
}

func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeContentRead) {
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate})
}

// handleReload rebuilds the sitemap and feed without restarting.
func (a *ServerAPI) handleReload(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeServerCtl) {
		return
	}
	if err := a.server.Reload(r.Context()); err != nil {
		a.logger.Error("Reload via API failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{
		"routes": a.server.sitemap.Len(),
		"posts":  a.server.feed.Len(),
	})
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeServerCtl) {
		return
	}
	a.logger.Warn("Shutdown initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is shutting down..."})
	go func() {
		a.actionChan <- actionShutdown
	}()
}

// handleRestart reloads the config file and restarts both servers.
func (a *ServerAPI) handleRestart(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeServerCtl) {
		return
	}
	a.logger.Warn("Restart initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is restarting..."})
	go func() {
		a.actionChan <- actionRestart
	}()
}
