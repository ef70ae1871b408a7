package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the site whenever the build manifest or the content file changes.
// Directories are watched rather than files so that atomic renames by build
// tools are seen. Bursts of events are collapsed into one reload.
func (s *Server) Watch(ctx context.Context) error {
	cfg := s.cm.Get()

	paths := []string{cfg.Site.ManifestPath}
	if cfg.Content.Source == sourceFile {
		paths = append(paths, cfg.Content.PostsPath)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func(w *fsnotify.Watcher) {
		_ = w.Close()
	}(watcher)

	targets := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err = watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	debounce := time.Duration(cfg.Server.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	s.logger.Info("Watching site files for changes", "files", paths)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, ok = targets[filepath.Clean(event.Name)]; !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug("Site file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("File watcher error", "error", err)
		case <-timer.C:
			if err = s.Reload(ctx); err != nil {
				s.logger.Error("Reload after file change failed, keeping previous content", "error", err)
			}
		}
	}
}
