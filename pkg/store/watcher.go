// pkg/store/watcher.go
package store

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// StateFiles maps a backend name to the on-disk files whose modification
// means that backend's package database changed outside of omni (a user
// ran apt directly, unattended upgrades fired, etc.).
var StateFiles = map[string][]string{
	"apt":    {"/var/lib/dpkg/status"},
	"pacman": {"/var/lib/pacman/local"},
}

// Watch invalidates cached records for a backend whenever one of its
// state files changes, until ctx is cancelled. Invalidation is debounced
// because package managers touch their databases many times per run.
func (db *DB) Watch(ctx context.Context, logger *log.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]string) // path -> backend
	for backend, paths := range StateFiles {
		for _, path := range paths {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := w.Add(path); err != nil {
				logger.Warn("watcher: add failed", "path", path, "err", err)
				continue
			}
			watched[path] = backend
		}
	}
	if len(watched) == 0 {
		logger.Debug("watcher: no backend state files present")
		<-ctx.Done()
		return nil
	}

	logger.Debug("watcher: started", "files", len(watched))

	// Debounce per backend.
	pending := make(map[string]*time.Timer)
	invalidate := make(chan string)

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			return nil

		case backend := <-invalidate:
			delete(pending, backend)
			if err := db.InvalidateBackend(backend); err != nil {
				logger.Warn("watcher: invalidate failed", "backend", backend, "err", err)
				continue
			}
			logger.Info("watcher: cache invalidated", "backend", backend)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			backend, ok := watched[ev.Name]
			if !ok || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, queued := pending[backend]; queued {
				continue
			}
			b := backend
			pending[backend] = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case invalidate <- b:
				case <-ctx.Done():
				}
			})

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error", "err", watchErr)
		}
	}
}
