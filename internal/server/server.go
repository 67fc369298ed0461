// Package server implements the single-threaded cooperative event loop
// (§4.I): one goroutine owns every mutation of sessions/windows/panes; all
// other goroutines (pane readers, client socket readers, timers) only ever
// push an Event onto a channel, never touch shared state directly.
package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tmuxcore/tmuxd/internal/cmdqueue"
	"github.com/tmuxcore/tmuxd/internal/keys"
	"github.com/tmuxcore/tmuxd/internal/mux"
	"github.com/tmuxcore/tmuxd/internal/workerutil"
)

// Kind identifies what woke the event loop.
type Kind uint8

const (
	KindPaneOutput Kind = iota
	KindClientCommand
	KindClientConnected
	KindClientDisconnected
	KindTimer
	KindSignal
)

// Event is one unit of work handed to the loop goroutine. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind Kind

	PaneID   string
	ClientID string
	Timer    func()
	Signal   func()
}

// Server owns the mux.Manager, the key-binding registry, and every client's
// command queue, processing events strictly one at a time off a single
// channel so no two commands ever touch session state concurrently.
type Server struct {
	Manager *mux.Manager
	Keys    *keys.Registry

	mu          sync.Mutex
	queues      map[string]*cmdqueue.Queue
	cursors     map[string]*keys.Cursor
	paneWaiters map[string][]func()

	events chan Event
	wg     sync.WaitGroup
}

// New creates a Server with a reasonably sized event channel; a production
// daemon has exactly one of these per process.
func New(m *mux.Manager) *Server {
	s := &Server{
		Manager:     m,
		Keys:        keys.NewRegistry(),
		queues:      map[string]*cmdqueue.Queue{},
		cursors:     map[string]*keys.Cursor{},
		paneWaiters: map[string][]func(){},
		events:      make(chan Event, 256),
	}
	seedDefaultBindings(s.Keys)
	return s
}

// seedDefaultBindings installs tmux's stock root/prefix key table: C-b
// enters the prefix table in root, and the prefix table itself carries the
// small set of bindings every new session starts with (new-window,
// split-window, detach, pane/window navigation). A user-defined
// `bind-key`/`unbind-key` layer would extend this registry the same way;
// this package does not yet expose one (§ Non-goals: no .tmux.conf option
// parsing).
func seedDefaultBindings(reg *keys.Registry) {
	// root/prefix are held for the registry's whole lifetime (never
	// released) so they outlive any single client's Cursor and are never
	// torn down by Registry.Release's refcounting while no client is
	// currently connected.
	root := reg.Table("root")
	prefixKey, err := keys.Parse("C-b")
	if err != nil {
		panic(err)
	}
	root.Bind(prefixKey, &keys.Binding{SwitchToTable: "prefix"})

	prefix := reg.Table("prefix")
	bind := func(spec, command string, args ...string) {
		code, err := keys.Parse(spec)
		if err != nil {
			panic(err)
		}
		prefix.Bind(code, &keys.Binding{Command: command, Args: args})
	}
	bind("c", "new-window")
	bind("%", "split-window", "-h")
	bind("\"", "split-window")
	bind("x", "kill-pane")
	bind("&", "kill-window")
	bind("d", "detach-client")
	bind("n", "select-window", "-t", "{next}")
	bind("p", "select-window", "-t", "{previous}")
	bind("l", "select-window", "-t", "{last}")
	bind("Left", "select-pane", "-t", "{left}")
	bind("Right", "select-pane", "-t", "{right}")
	bind("Up", "select-pane", "-t", "{up}")
	bind("Down", "select-pane", "-t", "{down}")
	bind("C-b", "send-keys", "C-b")
}

// Post enqueues an event for the loop to process; safe to call from any
// goroutine, including pane readers and socket accept loops.
func (s *Server) Post(ev Event) {
	s.events <- ev
}

// ClientQueue returns (creating if needed) clientID's command queue.
func (s *Server) ClientQueue(clientID string) *cmdqueue.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[clientID]
	if !ok {
		q = cmdqueue.New(clientID)
		s.queues[clientID] = q
	}
	return q
}

// ClientCursor returns (creating if needed) clientID's key-binding cursor,
// rooted at the "root" table.
func (s *Server) ClientCursor(clientID string) *keys.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cursors[clientID]
	if !ok {
		c = keys.NewCursor(s.Keys, "root")
		s.cursors[clientID] = c
	}
	return c
}

// RemoveClient drops a disconnected client's queue and cursor.
func (s *Server) RemoveClient(clientID string) {
	s.mu.Lock()
	c, ok := s.cursors[clientID]
	delete(s.cursors, clientID)
	delete(s.queues, clientID)
	s.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Submit enqueues item on clientID's queue and wakes the loop to drain it.
// Called from client-socket reader goroutines; never runs item itself.
func (s *Server) Submit(clientID string, item *cmdqueue.Item) {
	s.ClientQueue(clientID).Enqueue(item)
	s.Post(Event{Kind: KindClientCommand, ClientID: clientID})
}

// AwaitPaneOutput registers fn to run (on the loop goroutine) the next time
// paneID produces output, grounding tmux's wait-for/synchronize-panes style
// continuations without blocking the loop itself.
func (s *Server) AwaitPaneOutput(paneID string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paneWaiters[paneID] = append(s.paneWaiters[paneID], fn)
}

// Run drives the event loop until ctx is cancelled. It is the only
// goroutine that ever calls into Manager, Keys, or any client queue.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

// RunSupervised wraps Run with panic recovery so a bug in one command
// handler restarts the loop instead of killing the whole daemon, logging
// and retrying with backoff per internal/workerutil's recovery policy.
func (s *Server) RunSupervised(ctx context.Context, opts workerutil.RecoveryOptions) {
	workerutil.RunWithPanicRecovery(ctx, "server-loop", &s.wg, s.Run, opts)
}

// Wait blocks until RunSupervised's goroutine has exited.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) handle(ev Event) {
	switch ev.Kind {
	case KindClientCommand:
		s.drainQueue(ev.ClientID)
	case KindPaneOutput:
		s.wakeWaiters(ev.PaneID)
	case KindClientConnected:
		s.ClientQueue(ev.ClientID)
		s.ClientCursor(ev.ClientID)
	case KindClientDisconnected:
		s.RemoveClient(ev.ClientID)
	case KindTimer:
		if ev.Timer != nil {
			ev.Timer()
		}
	case KindSignal:
		if ev.Signal != nil {
			ev.Signal()
		}
	default:
		slog.Warn("[server] unknown event kind", "kind", ev.Kind)
	}
}

func (s *Server) drainQueue(clientID string) {
	q := s.ClientQueue(clientID)
	for q.RunNext() {
	}
}

func (s *Server) wakeWaiters(paneID string) {
	s.mu.Lock()
	fns := s.paneWaiters[paneID]
	delete(s.paneWaiters, paneID)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
