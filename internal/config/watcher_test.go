package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/scopeql/internal/config"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestWatcherInitialLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scopeql.yaml")
	writeConfigFile(t, path, "server:\n  log_level: warn\n")

	w, err := config.NewWatcher(path, nil, config.WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != config.LogWarn {
		t.Fatalf("log level = %q, want warn", got)
	}
}

func TestWatcherRejectsInvalidInitialConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scopeql.yaml")
	writeConfigFile(t, path, "server:\n  log_level: shouty\n")

	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("expected an error for an invalid initial config")
	}
}

func TestWatcherReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scopeql.yaml")
	writeConfigFile(t, path, "server:\n  log_level: info\n")

	var (
		mu       sync.Mutex
		reloaded bool
		oldLevel config.LogLevel
		newLevel config.LogLevel
	)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = true
		oldLevel = old.Server.LogLevel
		newLevel = new.Server.LogLevel
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	defer w.Stop()

	writeConfigFile(t, path, "server:\n  log_level: debug\n")

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		done := reloaded
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reload callback never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if oldLevel != config.LogInfo || newLevel != config.LogDebug {
		t.Fatalf("callback saw %q -> %q, want info -> debug", oldLevel, newLevel)
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Fatalf("Current() = %q, want debug", w.Current().Server.LogLevel)
	}
}

func TestWatcherKeepsOldConfigOnInvalidChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scopeql.yaml")
	writeConfigFile(t, path, "server:\n  log_level: info\n")

	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		t.Error("onChange must not fire for an invalid config")
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	defer w.Stop()

	writeConfigFile(t, path, "server:\n  log_level: shouty\n")
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Fatalf("Current() = %q, want the old config to stay in effect", got)
	}
}
