// Command tmuxd is the daemon process: one per user, holding every session/
// window/pane in memory and serving commands and attached terminals over a
// local Unix-domain socket (§4.I/§6). It never talks to a real terminal
// itself — that is cmd/tmux's job — tmuxd only owns state and the event
// loop that mutates it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tmuxcore/tmuxd/internal/client"
	"github.com/tmuxcore/tmuxd/internal/config"
	"github.com/tmuxcore/tmuxd/internal/histdb"
	"github.com/tmuxcore/tmuxd/internal/msglog"
	"github.com/tmuxcore/tmuxd/internal/mux"
	"github.com/tmuxcore/tmuxd/internal/server"
	"github.com/tmuxcore/tmuxd/internal/workerutil"
)

func main() {
	socketName := flag.String("L", "default", "socket name, under the resolved socket directory")
	socketDirFlag := flag.String("socket-dir", "", "override the socket directory (default: config socket_dir, or a tmuxd-<uid> directory under $TMUX_TMPDIR or the temp dir)")
	configPath := flag.String("f", config.DefaultPath(), "path to tmuxd's bootstrap config file")
	group := flag.Bool("g", false, "relax the socket directory/file mode to 0750 for group access")
	flag.Parse()

	cfg, err := config.EnsureFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmuxd: load config: %v\n", err)
		os.Exit(1)
	}

	ring := msglog.New(cfg.MessageLogCapacity)
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(cfg.LogLevel))
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar})
	logger := slog.New(msglog.NewHandler(base, ring, slog.LevelInfo))
	slog.SetDefault(logger)

	histPath := cfg.HistoryDBPath
	if histPath == "" {
		histPath = config.DefaultHistoryDBPath()
	}
	if err := os.MkdirAll(filepath.Dir(histPath), 0700); err != nil {
		slog.Error("[tmuxd] create history db directory failed", "path", histPath, "error", err)
		os.Exit(1)
	}
	db, err := histdb.Open(histPath)
	if err != nil {
		slog.Error("[tmuxd] open history db failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	ring.OnEvict(db.MessageArchiver())

	manager := mux.NewManager()
	srv := server.New(manager)

	socketDir := *socketDirFlag
	if socketDir == "" {
		socketDir = cfg.SocketDir
	}
	if socketDir == "" {
		socketDir = config.DefaultSocketDir()
	}
	socketPath := filepath.Join(socketDir, *socketName)

	listener := client.NewListener(socketPath, srv, *group)
	if err := listener.Start(); err != nil {
		slog.Error("[tmuxd] start listener failed", "error", err)
		os.Exit(1)
	}
	slog.Info("[tmuxd] listening", "socket", socketPath, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(context.Background())
	srv.RunSupervised(ctx, workerutil.RecoveryOptions{})

	watcher, err := config.Watch(*configPath, socketDir, func(newCfg config.Config, err error) {
		if err != nil {
			slog.Warn("[tmuxd] config reload failed", "error", err)
			return
		}
		slog.Info("[tmuxd] config reloaded", "log_level", newCfg.LogLevel, "history_limit", newCfg.HistoryLimit)
		levelVar.Set(parseLevel(newCfg.LogLevel))
	}, func() {
		slog.Warn("[tmuxd] socket directory removed out from under the server", "dir", socketDir)
	})
	if err != nil {
		slog.Warn("[tmuxd] config watch failed to start", "error", err)
	} else {
		defer watcher.Close()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	slog.Info("[tmuxd] shutdown started", "at", time.Now().Format(time.RFC3339))
	if err := listener.Stop(); err != nil {
		slog.Warn("[tmuxd] listener stop error", "error", err)
	}
	cancel()
	srv.Wait()
	manager.Close()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
