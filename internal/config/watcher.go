package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watcher hot-reloads a config file and watches the socket directory for
// external removal, the way a long-lived server notices an operator
// editing its settings or tearing down its runtime directory out from
// under it.
type Watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

// Watch begins watching path's config file (reloading and invoking onChange
// after each settled write) and socketDir (invoking onSocketDirRemoved if it
// disappears). Either callback may be nil. Watching the containing
// directory rather than the file itself, as fsnotify recommends, survives
// editors that save via a temp-file-then-rename.
func Watch(path, socketDir string, onChange func(Config, error), onSocketDirRemoved func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	if err := fw.Add(configDir); err != nil {
		fw.Close()
		return nil, err
	}
	watchingSocketDir := false
	if socketDir != "" && socketDir != configDir {
		if err := fw.Add(socketDir); err != nil {
			slog.Warn("[config] failed to watch socket directory", "dir", socketDir, "error", err)
		} else {
			watchingSocketDir = true
		}
	}

	w := &Watcher{fs: fw, done: make(chan struct{})}
	go w.run(path, socketDir, watchingSocketDir, onChange, onSocketDirRemoved)
	return w, nil
}

func (w *Watcher) run(path, socketDir string, watchingSocketDir bool, onChange func(Config, error), onSocketDirRemoved func()) {
	defer w.fs.Close()

	var debounce *time.Timer
	reload := func() {
		if onChange == nil {
			return
		}
		cfg, err := Load(path)
		onChange(cfg, err)
	}

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if watchingSocketDir && ev.Name == socketDir && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if onSocketDirRemoved != nil {
					onSocketDirRemoved()
				}
				continue
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, reload)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("[config] watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return nil
}
