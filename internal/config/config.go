// Package config loads tmuxd's own bootstrap configuration: where to put
// the control socket, what shell to spawn panes with, how much scrollback
// and prompt history to keep, and at what level to log. This is NOT the
// runtime key-binding/option table a `.tmux.conf` would define — that is
// out of scope (§ Non-goals) — it is the small, mostly-static settings
// file the server reads once at startup and then hot-reloads via
// `fsnotify` while running, the way the teacher's desktop app keeps its
// own settings file separate from tmux-compatible command options.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB

	// DefaultHistoryLimit is the scrollback line count a new pane gets when
	// a session does not override it (tmux's history-limit default).
	DefaultHistoryLimit = 2000
	// DefaultPromptHistoryLimit bounds how many entries internal/histdb
	// keeps per prompt type (§6 "bounded").
	DefaultPromptHistoryLimit = 1000
	// DefaultMessageLogCapacity bounds internal/msglog's in-memory ring
	// (§5 "Global ordered sets ... message_log").
	DefaultMessageLogCapacity = 1000
	// DefaultTidyInterval is the default for Config.TidyInterval.
	DefaultTidyInterval = 5 * time.Minute
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir

// Config is tmuxd's server bootstrap configuration.
type Config struct {
	// SocketDir is the directory holding the per-user control socket,
	// analogous to tmux's $TMUX_TMPDIR. Empty means DefaultSocketDir().
	SocketDir string `yaml:"socket_dir,omitempty" json:"socket_dir,omitempty"`
	// Shell is the default program spawned in a pane when a command isn't
	// given explicitly; empty means "use $SHELL, falling back to /bin/sh".
	Shell string `yaml:"shell" json:"shell"`
	// HistoryLimit is the default pane scrollback size in lines.
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`
	// PromptHistoryLimit bounds internal/histdb's per-prompt-type row count.
	PromptHistoryLimit int `yaml:"prompt_history_limit" json:"prompt_history_limit"`
	// MessageLogCapacity bounds internal/msglog's in-memory ring size.
	MessageLogCapacity int `yaml:"message_log_capacity" json:"message_log_capacity"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
	// TidyInterval is a sweep interval that Load defaults when unset; no
	// component in this module reads it or runs a periodic sweep.
	TidyInterval time.Duration `yaml:"tidy_interval" json:"tidy_interval"`
	// HistoryDBPath is where internal/histdb persists prompt history and
	// archived message_log entries; empty means DefaultHistoryDBPath().
	HistoryDBPath string `yaml:"history_db_path,omitempty" json:"history_db_path,omitempty"`
}

// DefaultConfig returns the configuration a freshly-installed server runs
// with before any config file is read.
func DefaultConfig() Config {
	return Config{
		Shell:              defaultShell(),
		HistoryLimit:       DefaultHistoryLimit,
		PromptHistoryLimit: DefaultPromptHistoryLimit,
		MessageLogCapacity: DefaultMessageLogCapacity,
		LogLevel:           "info",
		TidyInterval:       DefaultTidyInterval,
	}
}

func defaultShell() string {
	if sh := strings.TrimSpace(os.Getenv("SHELL")); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// DefaultSocketDir mirrors tmux's socket directory resolution: prefer
// $TMUX_TMPDIR, then $TMPDIR, then /tmp, then a per-uid subdirectory.
func DefaultSocketDir() string {
	base := strings.TrimSpace(os.Getenv("TMUX_TMPDIR"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("TMPDIR"))
	}
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, fmt.Sprintf("tmuxd-%d", os.Getuid()))
}

// DefaultHistoryDBPath resolves the prompt-history/archive database path:
// $XDG_STATE_HOME/tmuxd/history.db, falling back to ~/.local/state, then
// os.TempDir() if the home directory cannot be resolved at all.
func DefaultHistoryDBPath() string {
	if base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); base != "" {
		return filepath.Join(base, "tmuxd", "history.db")
	}
	home, err := userHomeDirFn()
	if err != nil {
		slog.Warn("[config] using temp dir as history db fallback", "error", err)
		return filepath.Join(os.TempDir(), "tmuxd", "history.db")
	}
	return filepath.Join(home, ".local", "state", "tmuxd", "history.db")
}

// DefaultPath resolves the config file path: $TMUXCORE_CONFIG if set,
// otherwise $XDG_CONFIG_HOME/tmuxd/config.yaml, falling back to
// ~/.config and finally os.TempDir() when even the home directory can't
// be resolved.
func DefaultPath() string {
	if explicit := strings.TrimSpace(os.Getenv("TMUXCORE_CONFIG")); explicit != "" {
		return explicit
	}
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[config] using temp dir as config path fallback", "error", err)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "tmuxd", "config.yaml")
}

// Load reads the config file at path. A missing file is not an error: the
// defaults are returned instead, so a server can start with no config file
// present at all.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[config] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes the default config to path if nothing exists there yet,
// then returns the loaded (possibly just-written) config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save validates cfg, fills in defaults, and atomically writes it to path.
// It returns the normalized config actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[config] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + rename so a reader (or
// an fsnotify watcher) never observes a partially-written file.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[config] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[config] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory when that directory is resolvable.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in
// place. Used by both Load and Save to keep normalization consistent.
func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()
	if isZeroConfig(*cfg) {
		*cfg = defaults
		return nil
	}

	if cfg.Shell == "" {
		cfg.Shell = defaults.Shell
	}
	if err := validateShell(cfg.Shell); err != nil {
		return err
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}
	if cfg.PromptHistoryLimit <= 0 {
		cfg.PromptHistoryLimit = defaults.PromptHistoryLimit
	}
	if cfg.MessageLogCapacity <= 0 {
		cfg.MessageLogCapacity = defaults.MessageLogCapacity
	}
	if cfg.TidyInterval <= 0 {
		cfg.TidyInterval = defaults.TidyInterval
	}
	if err := validateLogLevel(cfg); err != nil {
		return err
	}
	return nil
}

var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// validateLogLevel rejects an unrecognized log_level outright: silently
// falling back here would hide a typo'd config value behind the wrong
// verbosity for the life of the server.
func validateLogLevel(cfg *Config) error {
	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if level == "" {
		cfg.LogLevel = "info"
		return nil
	}
	if _, ok := validLogLevels[level]; !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", cfg.LogLevel)
	}
	cfg.LogLevel = level
	return nil
}

// validateShell rejects a shell value that obviously cannot be exec'd: a
// null byte, or an absolute path that does not exist. A bare name (resolved
// against $PATH at spawn time) and a relative path are both accepted, since
// $SHELL on many systems is already just a name.
func validateShell(shell string) error {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		return errors.New("shell is required")
	}
	if strings.ContainsRune(shell, '\x00') {
		return errors.New("shell contains invalid null byte")
	}
	if filepath.IsAbs(shell) {
		info, err := os.Stat(shell)
		if err != nil {
			return fmt.Errorf("shell path does not exist: %w", err)
		}
		if info.IsDir() {
			return errors.New("shell path cannot be a directory")
		}
	}
	return nil
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}
