package cli

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 300 * time.Millisecond

// watchSources calls rebuild after Lua files under paths change, until ctx
// is cancelled. Bursts of events within watchDebounce trigger one rebuild.
func watchSources(ctx context.Context, paths []string, logger *zap.Logger, rebuild func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range paths {
		if err := addWatchTree(watcher, p); err != nil {
			return err
		}
	}
	logger.Info("watching for changes", zap.Strings("paths", paths))

	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchTree(watcher, event.Name); err != nil {
						logger.Warn("cannot watch directory", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !isWatchedSource(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logger.Debug("source changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			debounce = time.After(watchDebounce)

		case <-debounce:
			debounce = nil
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

// addWatchTree watches root and every directory below it. A file root is
// watched through its directory.
func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !de.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(de.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isWatchedSource(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".lua" || ext == ".luau"
}
