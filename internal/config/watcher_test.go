package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if _, err := Save(validPathForWatchTest(t, path), DefaultConfig()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded := make(chan Config, 4)
	w, err := Watch(path, "", func(cfg Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	}, nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	if _, err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	select {
	case got := <-reloaded:
		if got.LogLevel != "debug" {
			t.Errorf("reloaded LogLevel = %q, want debug", got.LogLevel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not observe the config change in time")
	}
}

func TestWatchNotifiesSocketDirRemoval(t *testing.T) {
	configDir := t.TempDir()
	path := filepath.Join(configDir, "config.yaml")
	socketDir := t.TempDir()

	removed := make(chan struct{}, 1)
	w, err := Watch(path, socketDir, nil, func() { removed <- struct{}{} })
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if err := os.RemoveAll(socketDir); err != nil {
		t.Fatalf("failed to remove socket dir: %v", err)
	}

	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not notice socket directory removal in time")
	}
}

// validPathForWatchTest redirects path resolution so Save accepts a path
// under dir, matching validateConfigPath's containment check.
func validPathForWatchTest(t *testing.T, path string) string {
	t.Helper()
	t.Setenv("TMUXCORE_CONFIG", path)
	return path
}
