package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDiff(t *testing.T) {
	base := validConfig()

	t.Run("log level only", func(t *testing.T) {
		next := validConfig()
		next.Telemetry.Logging.Level = "debug"

		c := Diff(base, next)
		if !c.LogLevel || c.Health || len(c.RestartRequired) != 0 {
			t.Errorf("Diff() = %+v", c)
		}
	})

	t.Run("health only", func(t *testing.T) {
		next := validConfig()
		next.Health.Interval = time.Minute

		c := Diff(base, next)
		if c.LogLevel || !c.Health || len(c.RestartRequired) != 0 {
			t.Errorf("Diff() = %+v", c)
		}
	})

	t.Run("restart sections", func(t *testing.T) {
		next := validConfig()
		next.Cache.DefaultTTL = time.Hour
		next.Telemetry.Logging.Format = "text"

		c := Diff(base, next)
		if len(c.RestartRequired) != 2 || c.RestartRequired[0] != "cache" || c.RestartRequired[1] != "telemetry.logging" {
			t.Errorf("RestartRequired = %v", c.RestartRequired)
		}
	})
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hub.yaml")
	if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}
	initial, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, initial, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.load = LoadConfig

	var mu sync.Mutex
	var changes []Change
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(c Change) {
			mu.Lock()
			changes = append(changes, c)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: debug\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(changes)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	got := append([]Change(nil), changes...)
	mu.Unlock()

	if len(got) != 1 {
		t.Fatalf("expected one debounced change, got %d", len(got))
	}
	if !got[0].LogLevel {
		t.Errorf("expected log level change, got %+v", got[0])
	}
	if w.Current().Telemetry.Logging.Level != "debug" {
		t.Errorf("Current() level = %q", w.Current().Telemetry.Logging.Level)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	if err := os.WriteFile(path, []byte("stream:\n  buffer_depth: -3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	initial := validConfig()

	w, err := NewWatcher(path, initial, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.load = LoadConfig

	called := false
	w.reload(func(Change) { called = true })

	if called {
		t.Error("onChange called for an invalid file")
	}
	if w.Current() != initial {
		t.Error("invalid file replaced the current configuration")
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	calls := 0
	for i := 0; i < 5; i++ {
		d.Trigger(func() {
			mu.Lock()
			calls++
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}
