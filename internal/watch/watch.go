// Package watch reports changes to catalog files in a data directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before reporting it.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc receives the sorted base names of the files changed in one burst.
type ChangeFunc func(ctx context.Context, files []string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for watch and callback errors.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher watches one directory.
type Watcher struct {
	dir      string
	onChange ChangeFunc
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New starts watching dir. Call Run to deliver events and Close to release
// the watch.
func New(dir string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if err := fsw.Add(abs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      abs,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Relevant reports whether a file name is a catalog file or the manifest.
// In-flight temporary files are ignored.
func Relevant(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch filepath.Ext(base) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Run delivers debounced changes until ctx is done or the watch is closed.
// Callback errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var settle <-chan time.Time
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !Relevant(ev.Name) {
				continue
			}
			pending[filepath.Base(ev.Name)] = struct{}{}
			timer.Reset(w.debounce)
			settle = timer.C
		case <-settle:
			settle = nil
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			slices.Sort(files)
			clear(pending)
			w.logger.Debug("data directory changed", slog.Any("files", files))
			if err := w.onChange(ctx, files); err != nil {
				w.logger.Warn("reload failed", slog.String("dir", w.dir), slog.Any("error", err))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("dir", w.dir), slog.Any("error", err))
		}
	}
}

// Close stops the underlying watch.
func (w *Watcher) Close() error { return w.fsw.Close() }
