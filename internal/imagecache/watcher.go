package imagecache

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher evicts cache entries for local blobs whose backing files change or
// disappear. Draft-board card images live as plain files under the blob
// directory and the UI process is not the only writer, so cached copies can
// go stale.
type Watcher struct {
	cache    *Cache
	basePath string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewWatcher creates a watcher over the local blob directory.
func NewWatcher(cache *Cache, basePath string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(basePath); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		cache:    cache,
		basePath: basePath,
		watcher:  fw,
		logger:   logger,
	}, nil
}

// Start runs the event loop until ctx is canceled.
// Call in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				// Watch new namespace subdirectories as they appear.
				if event.Op&fsnotify.Create != 0 {
					_ = w.watcher.Add(event.Name)
				}
				continue
			}
			url := w.urlFor(event.Name)
			w.cache.Evict(url)
			w.logger.Debug("evicted stale image cache entry", "url", url, "op", event.Op.String())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("blob watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// urlFor converts an absolute path under the blob directory back into the
// local:// URL the cache is keyed by.
func (w *Watcher) urlFor(path string) string {
	rel, err := filepath.Rel(w.basePath, path)
	if err != nil {
		return path
	}
	return "local://" + strings.ReplaceAll(rel, string(filepath.Separator), "/")
}
