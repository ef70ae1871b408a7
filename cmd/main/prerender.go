package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/neurofin/website/pkg/feed"
	"github.com/neurofin/website/pkg/sitemap"
)

// prerender writes sitemap.xml and blog/rss.xml under outDir so they can be
// served as static files.
func prerender(ctx context.Context, cfg Config, outDir string, logger *slog.Logger) error {
	manifest, err := sitemap.LoadManifest(cfg.Site.ManifestPath)
	if err != nil {
		return err
	}
	sm, err := sitemap.New(cfg.Site.Origin, manifest.Prerendered)
	if err != nil {
		return err
	}
	sitemapBody := sm.Bytes()

	source, _, err := newContentSource(*cfg.Content, nil)
	if err != nil {
		return err
	}
	f := feed.New(cfg.Site.Channel, cfg.Site.Origin, source)
	if err = f.Refresh(ctx); err != nil {
		return err
	}
	feedBody, err := f.Bytes()
	if err != nil {
		return err
	}

	outputs := []struct {
		path string
		body []byte
	}{
		{filepath.Join(outDir, filepath.FromSlash(sitemap.Path)), sitemapBody},
		{filepath.Join(outDir, filepath.FromSlash(feed.Path)), feedBody},
	}
	for _, out := range outputs {
		if err = os.MkdirAll(filepath.Dir(out.path), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err = atomic.WriteFile(out.path, bytes.NewReader(out.body)); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.path, err)
		}
		logger.Info("Wrote prerendered file", "path", out.path, "bytes", len(out.body))
	}
	return nil
}
