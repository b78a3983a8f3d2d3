package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrelhealth/radpoint/pkg/observability"
)

// WatchLogLevel watches the config file and applies log level changes to the
// logger at runtime. It blocks until ctx is canceled, so run it in its own
// goroutine.
func WatchLogLevel(ctx context.Context, path string, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors and k8s configmap
	// mounts replace the file instead of writing it in place.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger.WithField("path", path).Info("Watching config file for log level changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			level, err := FileLogLevel(path)
			if err != nil {
				logger.WithError(err).Warn("Failed to reload config file")
				continue
			}
			if level == "" {
				continue
			}

			logger.WithField("log_level", level).Info("Applying log level from config file")
			logger.SetLevel(ParseLogLevel(level))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Config watcher error")
		}
	}
}
