package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/tiercache/logging"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads configuration when the watched file changes. It reloads
// through the full loader chain, so env and flag overrides survive a reload.
type Watcher struct {
	path     string
	loader   *Loader
	onChange func(*Config)
	logger   logging.LoggerInterface

	fs     *fsnotify.Watcher
	stopCh chan struct{}
}

// NewWatcher creates a watcher over path. The loader is reused for every
// reload; onChange receives each configuration that differs from the last.
func NewWatcher(path string, loader *Loader, onChange func(*Config), logger logging.LoggerInterface) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Watcher{
		path:     expandPath(path),
		loader:   loader,
		onChange: onChange,
		logger:   logger,
		fs:       fs,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It watches both the file and its directory, since
// editors often replace the file instead of writing it in place.
func (w *Watcher) Start(initial *Config) error {
	if _, err := os.Stat(w.path); err == nil {
		if err := w.fs.Add(w.path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", w.path, err)
		}
	}
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	go w.run(initial)
	return nil
}

// Stop ends the watch goroutine and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.fs.Close()
}

// run coalesces bursts of file events with a debounce timer, then reloads.
// Editors commonly emit several write and rename events per save.
func (w *Watcher) run(current *Config) {
	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if pending {
				debounce.Stop()
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(reloadDebounce)
			pending = true

		case <-debounce.C:
			pending = false
			current = w.reload(current)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("config watcher error: %v", err)

		case <-w.stopCh:
			return
		}
	}
}

// reload runs the loader and fires onChange when the result differs.
func (w *Watcher) reload(current *Config) *Config {
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		w.logger.Warnf("config file removed: %s", w.path)
		return current
	}

	next, err := w.loader.Load()
	if err != nil {
		w.logger.Warnf("failed to reload configuration, keeping previous: %v", err)
		return current
	}

	if current != nil && fmt.Sprintf("%+v", *current) == fmt.Sprintf("%+v", *next) {
		return current
	}

	w.logger.Infof("configuration reloaded from %s", w.path)
	if w.onChange != nil {
		w.onChange(next)
	}
	return next
}
