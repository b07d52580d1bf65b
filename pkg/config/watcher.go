package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a reload.
const DefaultDebounceInterval = 100 * time.Millisecond

// Change describes a reloaded configuration.
type Change struct {
	// Config is the newly loaded configuration.
	Config *Config

	// LogLevel is set when telemetry.logging.level changed.
	LogLevel bool

	// Health is set when the health section changed.
	Health bool

	// RestartRequired lists the changed sections a running hub ignores.
	RestartRequired []string
}

// Diff compares two configurations section by section.
func Diff(prev, next *Config) Change {
	c := Change{Config: next}

	c.LogLevel = prev.Telemetry.Logging.Level != next.Telemetry.Logging.Level
	c.Health = !reflect.DeepEqual(prev.Health, next.Health)

	sections := []struct {
		name       string
		prev, next any
	}{
		{"providers", prev.Providers, next.Providers},
		{"routing", prev.Routing, next.Routing},
		{"pipeline", prev.Pipeline, next.Pipeline},
		{"cache", prev.Cache, next.Cache},
		{"resilience", prev.Resilience, next.Resilience},
		{"stream", prev.Stream, next.Stream},
		{"rate_limits", prev.RateLimits, next.RateLimits},
		{"telemetry.metrics", prev.Telemetry.Metrics, next.Telemetry.Metrics},
		{"telemetry.tracing", prev.Telemetry.Tracing, next.Telemetry.Tracing},
		{"server", prev.Server, next.Server},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.prev, s.next) {
			c.RestartRequired = append(c.RestartRequired, s.name)
		}
	}

	pl, nl := prev.Telemetry.Logging, next.Telemetry.Logging
	pl.Level, nl.Level = "", ""
	if !reflect.DeepEqual(pl, nl) {
		c.RestartRequired = append(c.RestartRequired, "telemetry.logging")
	}

	return c
}

// Watcher reloads a configuration file when it changes. Rapid successive
// writes are debounced into one reload; a file that fails to load or
// validate is logged and the previous configuration stays current.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *Debouncer
	load     func(path string) (*Config, error)

	mu      sync.RWMutex
	current *Config
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for path whose current configuration is
// current. If logger is nil, slog.Default() is used.
func NewWatcher(path string, current *Config, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  watcher,
		logger:   logger,
		debounce: NewDebouncer(DefaultDebounceInterval),
		load:     LoadConfigWithEnvOverrides,
		current:  current,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Watch blocks until ctx is cancelled or Stop is called, invoking onChange
// after every successful reload that changed something.
//
// The parent directory is watched so that editors which replace the file
// by renaming are followed.
func (w *Watcher) Watch(ctx context.Context, onChange func(Change)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Info("config watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path || event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			w.logger.Debug("config file event", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(func() { w.reload(onChange) })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(onChange func(Change)) {
	next, err := w.load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	w.mu.Unlock()

	change := Diff(prev, next)
	if len(change.RestartRequired) > 0 {
		w.logger.Warn("config changes require a restart to take effect", "sections", change.RestartRequired)
	}
	if !change.LogLevel && !change.Health && len(change.RestartRequired) == 0 {
		return
	}

	w.logger.Info("config reloaded", "path", w.path, "log_level_changed", change.LogLevel, "health_changed", change.Health)
	if onChange != nil {
		onChange(change)
	}
}

// Stop stops the watcher and waits for Watch to return.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	if running {
		<-w.doneCh
	}

	w.debounce.Stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Debouncer collects rapid events and runs the latest callback only after
// a quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback after the interval, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
