package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/trentlee0/utools-template/internal/logging"
)

// DefaultReloadDelay is how long the watcher waits for writes to settle.
const DefaultReloadDelay = 150 * time.Millisecond

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("plugin watcher closed")

// Reloader is what the watcher drives; *Manager implements it.
type Reloader interface {
	Reload(ctx context.Context, name string) error
	PluginForPath(path string) (string, bool)
	WatchPaths() []string
}

// Watcher reloads plugins whose scripts or manifest change on disk.
// Bursts of events for the same plugin are coalesced into one reload.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	reloader Reloader
	delay    time.Duration
	log      *logging.Logger

	// Watched directories
	dirs map[string]bool

	// Pending reloads by plugin name
	pending map[string]*time.Timer

	// OnReload is called after every reload attempt, if set.
	onReload func(name string, err error)

	closed bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReloadDelay sets the debounce delay.
func WithReloadDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		w.log = l
	}
}

// WithReloadCallback sets a function called after every reload attempt.
func WithReloadCallback(fn func(name string, err error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher over the plugin paths of r.
func NewWatcher(r Reloader, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		reloader: r,
		delay:    DefaultReloadDelay,
		log:      logging.Nop(),
		dirs:     make(map[string]bool),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, path := range r.WatchPaths() {
		if err := w.watch(path); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// watch adds the directory holding path. Single-file plugins are watched
// through their parent so editors that replace the file are seen.
func (w *Watcher) watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		dirs = append(dirs, dir)
	}
	return dirs
}

// Run processes filesystem events until ctx is done or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("plugin watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || !relevant(event.Name) {
		return
	}
	name, ok := w.reloader.PluginForPath(event.Name)
	if !ok {
		return
	}
	w.log.Debug("plugin %s changed: %s", name, event)
	w.schedule(ctx, name)
}

func relevant(path string) bool {
	return filepath.Ext(path) == ".lua" || filepath.Base(path) == ManifestFile
}

// schedule resets the pending reload of name.
func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Reset(w.delay)
		return
	}
	w.pending[name] = time.AfterFunc(w.delay, func() {
		w.fire(ctx, name)
	})
}

func (w *Watcher) fire(ctx context.Context, name string) {
	w.mu.Lock()
	delete(w.pending, name)
	closed := w.closed
	w.mu.Unlock()
	if closed || ctx.Err() != nil {
		return
	}

	err := w.reloader.Reload(ctx, name)
	if err != nil {
		w.log.Error("reload plugin %s: %v", name, err)
	} else {
		w.log.Info("reloaded plugin %s", name)
	}
	if w.onReload != nil {
		w.onReload(name, err)
	}
}

// Close stops the watcher and cancels pending reloads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
