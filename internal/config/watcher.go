package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/tablestorm/internal/event"
	"github.com/dshills/tablestorm/internal/event/topic"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Changed is the payload published under topic.ConfigChanged.
type Changed struct {
	Path   string
	Config *Config
}

// Logger receives reload failures.
type Logger interface {
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

// Watcher reloads a configuration file when it changes and publishes the
// result. The file's directory is watched so that editors replacing the
// file by rename are seen.
type Watcher struct {
	mu sync.Mutex

	path     string
	bus      *event.Bus
	log      Logger
	debounce time.Duration
	env      bool

	fsw *fsnotify.Watcher

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for reload failures.
func WithWatchLogger(l Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithEnvOverrides applies ApplyEnv to every reloaded config.
func WithEnvOverrides(enable bool) WatcherOption {
	return func(w *Watcher) {
		w.env = enable
	}
}

// NewWatcher starts watching path. Reloaded configs that validate are
// published on bus; the others are logged and dropped.
func NewWatcher(path string, bus *event.Bus, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		bus:      bus,
		log:      nopLogger{},
		debounce: DefaultDebounce,
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.Reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error: %v", err)
		}
	}
}

// relevant reports whether ev may have changed the file's content.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Reload reads the file now and publishes it if it is valid.
func (w *Watcher) Reload() {
	cfg, err := Load(w.path)
	if err == nil && w.env {
		err = cfg.ApplyEnv()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.log.Warn("config reload failed: path=%s error=%v", w.path, err)
		return
	}

	ev := event.NewEvent(topic.ConfigChanged, Changed{Path: w.path, Config: cfg}, "config")
	if err := w.bus.PublishSync(context.Background(), ev); err != nil {
		w.log.Warn("config change delivery failed: %v", err)
	}
}
