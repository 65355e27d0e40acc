package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watcher recompiles a pricing script whenever it changes on disk and
// installs it into a Switchable. A script that fails to compile leaves the
// previous rule in place.
type Watcher struct {
	fs      afero.Fs
	path    string
	target  *Switchable
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for path. Reload is not called until Start.
func NewWatcher(fs afero.Fs, path string, target *Switchable) *Watcher {
	return &Watcher{fs: fs, path: filepath.Clean(path), target: target}
}

// Reload compiles the script and swaps it in.
func (w *Watcher) Reload() error {
	rule, err := LoadScript(w.fs, w.path)
	if err != nil {
		return err
	}
	w.target.Swap(rule)
	slog.Info("Pricing script loaded", "event", "pricing_script_loaded", "script", w.path)
	return nil
}

// Start loads the script once and then watches its directory until ctx is
// canceled. Watching the directory rather than the file survives editors
// that replace files on save.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.Reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = watcher

	go w.loop(ctx)
	slog.Debug("Started pricing script watcher", "script", w.path)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.Reload(); err != nil {
				slog.Error("Pricing script reload failed, keeping previous rule",
					"event", "pricing_script_reload_failure", "script", w.path, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Pricing script watcher error", "script", w.path, "error", err)
		}
	}
}
