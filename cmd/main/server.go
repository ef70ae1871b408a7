package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/neurofin/website/pkg/appwrite"
	"github.com/neurofin/website/pkg/content"
	"github.com/neurofin/website/pkg/feed"
	"github.com/neurofin/website/pkg/sitemap"
)

type Server struct {
	cm         *ConfigManager
	db         *sql.DB
	logger     *slog.Logger
	store      *content.Store
	source     content.Source
	appwrite   *appwrite.Services
	sitemap    *sitemap.Sitemap
	feed       *feed.Feed
	authAPI    *AuthAPI
	serverAPI  *ServerAPI
	contentAPI *ContentAPI
	siteRouter chi.Router
	apiMux     *http.ServeMux
	reloadMu   sync.Mutex
	lastReload atomic.Pointer[time.Time]
}

func NewServer(ctx context.Context, cm *ConfigManager, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	cfg := cm.Get()

	store := content.NewStore(db)
	source, services, err := newContentSource(*cfg.Content, store)
	if err != nil {
		return nil, err
	}
	if services != nil {
		logger.Info("Appwrite client initialized", "endpoint", services.Databases.Endpoint())
	}

	// Routes are filled in by the first reload.
	sm, err := sitemap.New(cfg.Site.Origin, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sitemap: %w", err)
	}

	server := &Server{
		cm:         cm,
		db:         db,
		logger:     logger,
		store:      store,
		source:     source,
		appwrite:   services,
		sitemap:    sm,
		feed:       feed.New(cfg.Site.Channel, cfg.Site.Origin, source),
		apiMux:     http.NewServeMux(),
		siteRouter: chi.NewRouter(),
	}

	if err = server.Reload(ctx); err != nil {
		return nil, err
	}

	server.authAPI = NewAuthAPI(db, logger)
	server.serverAPI = NewServerAPI(cm, actionChan, server, logger)
	server.contentAPI = NewContentAPI(server, logger)

	apiMux := http.NewServeMux()
	server.authAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)
	server.contentAPI.RegisterRoutes(apiMux)

	// Everything under /api/ needs a key, except the health check used by the container runtime.
	server.apiMux.HandleFunc("GET /api/health", server.serverAPI.handleHealthCheck)
	server.apiMux.Handle("/api/", server.authAPI.Authenticate(apiMux))

	r := server.siteRouter
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		requestLogger(logger),
		middleware.Recoverer,
		server.sitemap.Middleware,
	)
	r.Method(http.MethodGet, feed.Path, server.feed)
	r.Method(http.MethodHead, feed.Path, server.feed)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return server, nil
}

// SiteHandler is the public site: sitemap, feed and health.
func (s *Server) SiteHandler() http.Handler {
	return s.siteRouter
}

// APIHandler is the admin API.
func (s *Server) APIHandler() http.Handler {
	return s.apiMux
}

// newContentSource picks the post source for cfg. With a nil store the file
// source is read straight from disk instead of through SQLite.
func newContentSource(cfg ContentConfig, store *content.Store) (content.Source, *appwrite.Services, error) {
	switch cfg.Source {
	case sourceAppwrite:
		awCfg, err := appwrite.LoadConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("appwrite content source: %w", err)
		}
		services, err := appwrite.NewServices(awCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("appwrite content source: %w", err)
		}
		src := content.NewAppwriteSource(services.Databases, cfg.AppwriteDatabaseID, cfg.AppwriteCollectionID, cfg.AppwriteLimit)
		return src, services, nil
	case sourceFile:
		if store != nil {
			return store, nil, nil
		}
		posts, err := content.LoadFile(cfg.PostsPath)
		if err != nil {
			return nil, nil, err
		}
		return content.Static(posts), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown content source %q", cfg.Source)
	}
}

// Reload re-reads the build manifest and the posts, then swaps in the new
// sitemap and feed. On error whatever was already being served stays in place.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg := s.cm.Get()
	start := time.Now()

	manifest, err := sitemap.LoadManifest(cfg.Site.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to load build manifest: %w", err)
	}

	if cfg.Content.Source == sourceFile {
		posts, err := content.LoadFile(cfg.Content.PostsPath)
		if err != nil {
			return fmt.Errorf("failed to load posts: %w", err)
		}
		if err = s.store.Replace(ctx, posts); err != nil {
			return fmt.Errorf("failed to sync posts: %w", err)
		}
	}

	if err = s.feed.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh feed: %w", err)
	}
	if err = s.sitemap.Update(manifest.Prerendered); err != nil {
		return fmt.Errorf("failed to update sitemap: %w", err)
	}

	now := time.Now()
	s.lastReload.Store(&now)
	s.logger.Info("Site content loaded",
		"routes", s.sitemap.Len(),
		"posts", s.feed.Len(),
		"source", cfg.Content.Source,
		"duration", time.Since(start))
	return nil
}

// LastReload returns when content was last loaded successfully.
// It does not wait for a reload in progress.
func (s *Server) LastReload() time.Time {
	if t := s.lastReload.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// requestLogger logs one line per request on the public site.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("Served request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(start))
		})
	}
}
