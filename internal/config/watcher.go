package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/router"
)

// ReloadFunc is called with every route table that loads, validates and
// compiles.
type ReloadFunc func(cfg *Config, tree *router.Tree)

// ErrorFunc is called when a reload fails. The previous tree stays in use.
type ErrorFunc func(error)

// Watcher rebuilds the route tree whenever the route table file changes.
type Watcher struct {
	path          string
	watcher       *fsnotify.Watcher
	onReload      ReloadFunc
	onError       ErrorFunc
	logger        *slog.Logger
	debounceDelay time.Duration

	mu        sync.RWMutex
	lastCfg   *Config
	lastTree  *router.Tree
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the watcher waits for writes to settle.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithErrorFunc sets the callback for failed reloads.
func WithErrorFunc(fn ErrorFunc) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher creates a watcher for the route table at path.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New("E124").Wrap(err)
	}

	w := &Watcher{
		path:          absPath,
		watcher:       fsWatcher,
		onReload:      onReload,
		debounceDelay: 100 * time.Millisecond,
		logger:        slog.Default(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads the route table once and then watches it until ctx is done
// or Stop is called. The initial load must succeed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	cfg, tree, err := w.load()
	if err != nil {
		return err
	}

	// The directory is watched so that editors that replace the file
	// by rename keep triggering events.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return errors.New("E124").WithDetail("watching " + filepath.Dir(w.path)).Wrap(err)
	}

	w.mu.Lock()
	w.lastCfg, w.lastTree = cfg, tree
	w.running = true
	w.mu.Unlock()

	w.logger.Info("watching route table", "path", w.path)
	go w.watch(ctx)
	return nil
}

// Stop stops watching and releases the file watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh
	return w.watcher.Close()
}

// Current returns the last route table and tree that loaded successfully.
func (w *Watcher) Current() (*Config, *router.Tree) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastCfg, w.lastTree
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("route table watcher stopped", "reason", ctx.Err())
			return

		case <-w.stopCh:
			w.logger.Info("route table watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			debounceTimer, debounceCh = w.handleEvent(event, debounceTimer, debounceCh)

		case <-debounceCh:
			debounceCh = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.fail("route table watcher error", err)
		}
	}
}

// handleEvent restarts the debounce timer for writes to the watched file.
func (w *Watcher) handleEvent(
	event fsnotify.Event,
	timer *time.Timer,
	ch <-chan time.Time,
) (*time.Timer, <-chan time.Time) {
	if filepath.Clean(event.Name) != w.path {
		return timer, ch
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return timer, ch
	}

	w.logger.Debug("route table changed", "path", event.Name, "op", event.Op.String())

	if timer != nil {
		timer.Stop()
	}
	timer = time.NewTimer(w.debounceDelay)
	return timer, timer.C
}

func (w *Watcher) reload() {
	w.logger.Info("reloading route table", "path", w.path)

	cfg, tree, err := w.load()
	if err != nil {
		w.fail("route table reload failed", err)
		return
	}

	w.mu.Lock()
	w.lastCfg, w.lastTree = cfg, tree
	w.mu.Unlock()

	w.logger.Info("route table reloaded", "routes", tree.Len())
	if w.onReload != nil {
		w.onReload(cfg, tree)
	}
}

// ForceReload reloads immediately, outside the debounce loop.
func (w *Watcher) ForceReload() error {
	cfg, tree, err := w.load()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.lastCfg, w.lastTree = cfg, tree
	w.mu.Unlock()

	if w.onReload != nil {
		w.onReload(cfg, tree)
	}
	return nil
}

func (w *Watcher) load() (*Config, *router.Tree, error) {
	cfg, err := LoadFile(w.path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	tree, err := cfg.Tree()
	if err != nil {
		return nil, nil, errors.FromError(err, "E100")
	}
	return cfg, tree, nil
}

func (w *Watcher) fail(msg string, err error) {
	w.logger.Error(msg, "error", err)
	if w.onError != nil {
		w.onError(err)
	}
}
