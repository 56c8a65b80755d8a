// Package watch reloads widget definitions when their directory changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-widgets/pkg/logging"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 250 * time.Millisecond

// Resetter drops cached state after a reload, typically *render.Service.
type Resetter interface {
	Reset()
}

// Config holds watcher settings.
type Config struct {
	Dir      string
	Debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithResetter registers caches to clear after every successful reload.
func WithResetter(r Resetter) Option {
	return func(w *Watcher) {
		if r != nil {
			w.resetters = append(w.resetters, r)
		}
	}
}

// WithOnReload registers a callback run after every reload attempt with
// the number of definitions loaded or the error.
func WithOnReload(fn func(count int, err error)) Option {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// Watcher watches a widget directory tree and swaps the registry content
// when files change. A reload that fails keeps the previous definitions.
type Watcher struct {
	dir       string
	debounce  time.Duration
	registry  *widgets.Registry
	resetters []Resetter
	onReload  func(int, error)
	logger    *slog.Logger

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a Watcher that loads into registry.
func New(cfg Config, registry *widgets.Registry, opts ...Option) (*Watcher, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("watch: directory is required")
	}
	if registry == nil {
		return nil, errors.New("watch: registry is required")
	}
	w := &Watcher{
		dir:      cfg.Dir,
		debounce: cfg.Debounce,
		registry: registry,
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.logger = logging.Component(w.logger, "watch")
	return w, nil
}

// Reload loads the directory and replaces the registry content.
func (w *Watcher) Reload() error {
	next, err := widgets.LoadFS(os.DirFS(w.dir))
	if err != nil {
		w.logger.Warn("reload failed, keeping previous definitions", slog.Any("error", err))
		w.notify(0, err)
		return err
	}
	w.registry.Replace(next)
	for _, r := range w.resetters {
		r.Reset()
	}
	w.logger.Info("widgets reloaded", slog.Int("count", next.Len()))
	w.notify(next.Len(), nil)
	return nil
}

func (w *Watcher) notify(count int, err error) {
	if w.onReload != nil {
		w.onReload(count, err)
	}
}

// Start begins watching. It returns once every directory is registered;
// events are processed until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	w.fsWatcher = fsw

	err = filepath.WalkDir(w.dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
	if err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch: watch %s: %w", w.dir, err)
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop terminates the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		if w.fsWatcher != nil {
			err = w.fsWatcher.Close()
		}
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	timerC := func() <-chan time.Time {
		if timer == nil {
			return nil
		}
		return timer.C
	}

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.watchIfDir(event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-timerC():
			timer = nil
			_ = w.Reload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.Any("error", err))

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) watchIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsWatcher.Add(path); err != nil {
		w.logger.Warn("watch new directory", slog.String("path", path), slog.Any("error", err))
	}
}

// isRelevantEvent reports whether event touches a definition file or a
// directory that may hold some.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json", ".yaml", ".yml":
		return true
	case "":
		// directories
		return true
	}
	return false
}
