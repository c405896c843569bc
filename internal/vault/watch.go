package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvault/internal/shared"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events one save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watch reports vault-relative paths of Markdown documents created or
// modified under folder. The channel closes when ctx is done or the
// underlying watcher fails.
func (s *Store) Watch(ctx context.Context, folder string, debounce time.Duration, logger *log.Logger) (<-chan string, error) {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dir, err := s.Resolve(folder)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create watcher: %v", shared.ErrFileSystemFailure, err)
	}
	if err := addRecursive(watcher, dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan string)
	go s.watchLoop(ctx, watcher, debounce, logger, out)
	return out, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, logger *log.Logger, out chan<- string) {
	defer close(out)
	defer watcher.Close()

	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			logger.Debug("event received", "name", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !hidden(filepath.Base(event.Name)) {
					if err := addRecursive(watcher, event.Name); err != nil {
						logger.Warn("could not watch new folder", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if rel, ok := s.documentPath(event.Name); ok {
				pending[rel] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("fsnotify error", "error", err)

		case now := <-ticker.C:
			for rel, seen := range pending {
				if now.Sub(seen) < debounce {
					continue
				}
				delete(pending, rel)
				select {
				case out <- rel:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// documentPath maps an absolute event path to a vault-relative document path.
func (s *Store) documentPath(name string) (string, bool) {
	if !strings.HasSuffix(name, ".md") || strings.HasPrefix(filepath.Base(name), TempFilePrefix) {
		return "", false
	}
	rel, err := filepath.Rel(s.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if hidden(rel) {
		return "", false
	}
	return rel, true
}

func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("%w: watch %s: %v", shared.ErrFileSystemFailure, p, err)
		}
		return nil
	})
}
