package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "neurofin",
		Short:        "neurofin.cloud site server: sitemap, blog feed and admin API",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve(configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.json", "path to the JSON config file (created with defaults if missing)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the site and admin API servers (default)",
			RunE: func(_ *cobra.Command, _ []string) error {
				return serve(configPath)
			},
		},
		prerenderCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "neurofin %s (commit=%s, date=%s)\n", Version, Commit, BuildDate)
			},
		},
	)
	return cmd
}

func prerenderCmd(configPath *string) *cobra.Command {
	var outDir string

	c := &cobra.Command{
		Use:   "prerender",
		Short: "Write sitemap.xml and blog/rss.xml as static files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Server.LogLevel)
			return prerender(cmd.Context(), cfg.clone(), outDir, logger)
		},
	}
	c.Flags().StringVarP(&outDir, "out", "o", "./build/prerendered", "output directory")
	return c
}

// newLogger builds the process logger for a configured level name.
func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// serve runs server cycles until a shutdown is requested or a cycle fails.
func serve(configPath string) error {
	baseLogger := newLogger("info")

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan
		baseLogger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := run(configPath, actionChan)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
			return err
		}
		if action != actionRestart {
			break
		}
		baseLogger.Info("--- Server Restarting ---")
	}

	baseLogger.Info("neurofin has shut down.")
	return nil
}

// run hosts the site and API servers, and returns whenever they are shut down or restarted.
func run(configPath string, actionChan chan string) (string, error) {
	cm, err := NewConfigManager(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := cm.Get()

	logger := newLogger(cfg.Server.LogLevel)
	cm.SetLogger(logger)
	logger.Info("Starting server cycle...", "version", Version)

	db, err := initDB(cfg.Server.DatabasePath)
	if err != nil {
		return "", fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		logger.Info("Closing database connection.")
		if cerr := db.Close(); cerr != nil {
			logger.Error("Failed to close database", "error", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := NewServer(ctx, cm, logger, db, actionChan)
	if err != nil {
		return "", fmt.Errorf("failed to create server object: %w", err)
	}

	eg, egctx := errgroup.WithContext(ctx)
	baseContext := func(net.Listener) context.Context { return egctx }

	siteHttpServer := &http.Server{
		Addr:              cfg.Server.SiteAddr,
		Handler:           server.SiteHandler(),
		BaseContext:       baseContext,
		ReadHeaderTimeout: 10 * time.Second,
	}
	apiHttpServer := &http.Server{
		Addr:              cfg.Server.ApiAddr,
		Handler:           server.APIHandler(),
		BaseContext:       baseContext,
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, srv := range []struct {
		name string
		http *http.Server
	}{{"site", siteHttpServer}, {"api", apiHttpServer}} {
		eg.Go(func() error {
			logger.Info("Starting "+srv.name+" server", "address", srv.http.Addr)
			if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server failed: %w", srv.name, err)
			}
			return nil
		})
	}
	if cfg.Server.Watch {
		eg.Go(func() error {
			return server.Watch(egctx)
		})
	}

	var action string
	select {
	case action = <-actionChan:
	case <-egctx.Done():
		// A server failed to start or stopped on its own.
		action = actionShutdown
	}

	logger.Info("Stopping servers for " + action + "...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err = apiHttpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
	}
	if err = siteHttpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Site server shutdown failed", "error", err)
	}
	cancel()

	if err = eg.Wait(); err != nil {
		return "", err
	}
	logger.Info("HTTP servers stopped.")
	return action, nil
}
