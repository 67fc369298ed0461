package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/tmuxcore/tmuxd/internal/server"
)

const (
	defaultMaxConcurrentPeers = 64
	connSlotAcquireTimeout    = 5 * time.Second
)

// SocketPath returns $TMUX_TMPDIR/tmux-<uid>/<name>, tmux's default local
// socket location (§6). TMUX_TMPDIR defaults to /tmp; name defaults to
// "default".
func SocketPath(tmpDir, name string) string {
	if tmpDir == "" {
		tmpDir = os.Getenv("TMUX_TMPDIR")
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if name == "" {
		name = "default"
	}
	uid := "0"
	if u, err := user.Current(); err == nil {
		uid = u.Uid
	}
	return filepath.Join(tmpDir, "tmux-"+uid, name)
}

// Listener accepts client connections on a Unix-domain socket and hands
// each one off to a Peer, mirroring the teacher's PipeServer accept-loop
// shape (connection-slot semaphore, graceful Stop, per-connection
// goroutine) adapted from Windows named pipes to net.Listen("unix", ...).
type Listener struct {
	path  string
	group bool
	srv   *server.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	started   bool
	peers     map[uint32]*Peer
	nextPeer  uint32
	connSlots chan struct{}
	wg        sync.WaitGroup
}

// NewListener creates a Listener for path, serving commands against srv.
// group=true relaxes the socket directory/file mode from 0700 to 0750
// (tmux's `-g` flag).
func NewListener(path string, srv *server.Server, group bool) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		path:      path,
		group:     group,
		srv:       srv,
		ctx:       ctx,
		cancel:    cancel,
		peers:     map[uint32]*Peer{},
		connSlots: make(chan struct{}, defaultMaxConcurrentPeers),
	}
}

// Start binds and begins accepting on the listener's socket path.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return errors.New("client: listener already started")
	}

	dirMode := os.FileMode(0700)
	sockMode := os.FileMode(0700)
	if l.group {
		dirMode, sockMode = 0750, 0750
	}
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("client: create socket dir %s: %w", dir, err)
	}
	if err := os.Chmod(dir, dirMode); err != nil {
		return fmt.Errorf("client: chmod socket dir %s: %w", dir, err)
	}
	// A stale socket file from a crashed server blocks bind; tmux's own
	// server takes the same approach of unlinking before listen.
	_ = os.Remove(l.path)

	ln, err := net.Listen("unix", l.path)
	if err != nil {
		return fmt.Errorf("client: listen %s: %w", l.path, err)
	}
	if err := os.Chmod(l.path, sockMode); err != nil {
		ln.Close()
		return fmt.Errorf("client: chmod socket %s: %w", l.path, err)
	}

	l.listener = ln
	l.started = true
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.acceptLoop()
	}()
	return nil
}

// Stop closes the listener and every live peer connection, then waits for
// their goroutines to exit.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = false
	l.cancel()
	ln := l.listener
	l.listener = nil
	peers := make([]*Peer, 0, len(l.peers))
	for _, p := range l.peers {
		peers = append(peers, p)
	}
	l.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, p := range peers {
		p.close()
	}
	l.wg.Wait()
	_ = os.Remove(l.path)
	return nil
}

func (l *Listener) acceptLoop() {
	consecutiveErrors := 0
	for {
		l.mu.Lock()
		ln := l.listener
		l.mu.Unlock()
		if ln == nil {
			return
		}

		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-l.ctx.Done():
				return
			default:
				consecutiveErrors++
				if consecutiveErrors > 10 {
					slog.Warn("[client] accept loop: repeated failures", "error", err, "count", consecutiveErrors)
					time.Sleep(500 * time.Millisecond)
				}
				continue
			}
		}
		consecutiveErrors = 0

		if !l.acquireSlot() {
			conn.Close()
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.releaseSlot()
			l.handleConn(conn)
		}()
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	l.mu.Lock()
	id := l.nextPeer
	l.nextPeer++
	p := newPeer(id, conn)
	l.peers[id] = p
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		p.writeLoop()
	}()
	p.readLoop(l.srv, func(peer *Peer) {
		l.mu.Lock()
		delete(l.peers, peer.ID)
		l.mu.Unlock()
		peer.close()
		slog.Info("[client] peer disconnected", "peer", peer.ID, "conn_id", peer.ConnID)
		l.srv.Post(server.Event{Kind: server.KindClientDisconnected, ClientID: peer.ClientID})
	})
}

func (l *Listener) acquireSlot() bool {
	timer := time.NewTimer(connSlotAcquireTimeout)
	defer timer.Stop()
	select {
	case l.connSlots <- struct{}{}:
		return true
	case <-timer.C:
		slog.Warn("[client] connection slot exhausted, rejecting client")
		return false
	case <-l.ctx.Done():
		return false
	}
}

func (l *Listener) releaseSlot() {
	select {
	case <-l.connSlots:
	default:
	}
}

// PeerCount returns the number of currently connected peers, for
// display-message/list-clients style introspection.
func (l *Listener) PeerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}
