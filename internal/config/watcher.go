package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the config file changes on disk.
// Only a subset of settings (currently log level and format) is safe to
// change at runtime; the callback receives the freshly loaded config
// and decides what to apply.
type Watcher struct {
	loader   *Loader
	onChange func(*Config)
}

// NewWatcher creates a watcher around the given loader.
func NewWatcher(loader *Loader, onChange func(*Config)) *Watcher {
	return &Watcher{loader: loader, onChange: onChange}
}

// Watch blocks until the context is canceled, invoking the callback on
// every successful reload. Reload failures are ignored so a transient
// bad edit does not kill the server.
func (w *Watcher) Watch(ctx context.Context) error {
	file := w.loader.ConfigFileUsed()
	if file == "" {
		// Nothing to watch; config came entirely from env and defaults.
		<-ctx.Done()
		return ctx.Err()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directory: editors replace files on save, which drops
	// direct file watches.
	if err := fw.Add(filepath.Dir(file)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := w.loader.Load()
			if err != nil {
				continue
			}
			if w.onChange != nil {
				w.onChange(cfg)
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return nil
			}
		}
	}
}
