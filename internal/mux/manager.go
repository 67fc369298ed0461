package mux

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tmuxcore/tmuxd/internal/layout"
	"github.com/tmuxcore/tmuxd/internal/pane"
	"github.com/tmuxcore/tmuxd/internal/terminal"
)

// Manager owns every session, window and group, each keyed by a
// monotonically allocated stable id (tmux's "global" ordered sets), and is
// the only place winlinks are created or removed so window refcounts stay
// consistent.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	windows  map[int]*Window
	groups   map[int]*SessionGroup

	nextSessionID int
	nextWindowID  int
	nextGroupID   int

	// flush batches every pane's consumer broadcasts on one shared timer
	// instead of a ticker goroutine per pane (§4.D/§4.I render pipeline).
	flush     *terminal.OutputFlushManager
	panesMu   sync.RWMutex
	panesByID map[string]*pane.Pane
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	m := &Manager{
		sessions:  map[string]*Session{},
		windows:   map[int]*Window{},
		groups:    map[int]*SessionGroup{},
		panesByID: map[string]*pane.Pane{},
	}
	m.flush = terminal.NewOutputFlushManager(16*time.Millisecond, 8*1024, m.deliverPaneOutput)
	m.flush.Start()
	return m
}

// deliverPaneOutput is the shared OutputFlushManager's emit callback: it
// routes a coalesced chunk back to whichever pane produced it.
func (m *Manager) deliverPaneOutput(paneID string, data []byte) {
	m.panesMu.RLock()
	p := m.panesByID[paneID]
	m.panesMu.RUnlock()
	if p != nil {
		p.DeliverOutput(data)
	}
}

func (m *Manager) registerPane(p *pane.Pane) {
	m.panesMu.Lock()
	m.panesByID[p.ID] = p
	m.panesMu.Unlock()
}

func (m *Manager) unregisterPane(paneID string) {
	m.panesMu.Lock()
	delete(m.panesByID, paneID)
	m.panesMu.Unlock()
	m.flush.RemovePane(paneID)
}

// destroyPane unregisters p from the flush manager before tearing it down,
// the single path every pane removal (kill-pane/kill-window/kill-session)
// routes through so the registry never outlives the pane it names.
func (m *Manager) destroyPane(p *pane.Pane) error {
	m.unregisterPane(p.ID)
	return p.Destroy()
}

// Close stops the manager's shared output flusher, flushing any pending
// pane output first.
func (m *Manager) Close() {
	m.flush.Stop()
}

// spawnPane spawns a pane wired into this manager's shared output flusher
// and registers it for delivery before returning, so every pane the
// manager creates (new-session/new-window/split-window) is reachable by
// deliverPaneOutput the moment its read loop starts.
func (m *Manager) spawnPane(cfg pane.Config, onExit func(*pane.Pane)) (*pane.Pane, error) {
	cfg.Flush = m.flush
	p, err := pane.Spawn(cfg, onExit)
	if err != nil {
		return nil, err
	}
	m.registerPane(p)
	return p, nil
}

// NewSessionOptions configures CreateSession's initial window and pane.
type NewSessionOptions struct {
	Name       string
	WindowName string
	PaneConfig pane.Config
}

// CreateSession creates a new session with one window and one pane running
// the given command (tmux's `new-session`).
func (m *Manager) CreateSession(opts NewSessionOptions) (*Session, *Window, *pane.Pane, error) {
	m.mu.Lock()
	if _, exists := m.sessions[opts.Name]; exists {
		m.mu.Unlock()
		return nil, nil, nil, fmt.Errorf("mux: session %q already exists", opts.Name)
	}
	sid := m.nextSessionID
	m.nextSessionID++
	wid := m.nextWindowID
	m.nextWindowID++
	m.mu.Unlock()

	p, err := m.spawnPane(opts.PaneConfig, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("mux: create session %q: %w", opts.Name, err)
	}

	cols, rows := p.Size()
	win := newWindow(wid, opts.WindowName)
	win.SetLayout(layout.NewSingle(p.ID, cols, rows))
	win.windowAddPane(p)

	sess := newSession(sid, opts.Name)
	if _, err := sess.winlinkAdd(win, 0); err != nil {
		return nil, nil, nil, err
	}
	sess.currentIndex = 0

	m.mu.Lock()
	m.sessions[opts.Name] = sess
	m.windows[wid] = win
	m.mu.Unlock()

	return sess, win, p, nil
}

// Session looks up a session by name.
func (m *Manager) Session(name string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[name]
	return s, ok
}

// Sessions returns every session, ordered by id (global ordered set).
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Window looks up a window by its stable id.
func (m *Manager) Window(id int) (*Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[id]
	return w, ok
}

// NewWindow creates a window with one pane and links it into session at
// index (negative picks the lowest free index), tmux's `new-window`.
func (m *Manager) NewWindow(session *Session, name string, index int, cfg pane.Config) (*Window, *pane.Pane, error) {
	m.mu.Lock()
	wid := m.nextWindowID
	m.nextWindowID++
	m.mu.Unlock()

	p, err := m.spawnPane(cfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("mux: new window: %w", err)
	}
	cols, rows := p.Size()
	win := newWindow(wid, name)
	win.SetLayout(layout.NewSingle(p.ID, cols, rows))
	win.windowAddPane(p)

	if _, err := session.winlinkAdd(win, index); err != nil {
		m.destroyPane(p)
		return nil, nil, err
	}

	m.mu.Lock()
	m.windows[wid] = win
	m.mu.Unlock()
	if session.group != nil {
		session.group.synchronizeFrom(session)
	}
	return win, p, nil
}

// KillWindow removes the winlink at index from session and destroys the
// window if that was its last reference, closing every remaining pane.
func (m *Manager) KillWindow(session *Session, index int) error {
	emptied, win, err := session.winlinkRemove(index)
	if err != nil {
		return err
	}
	if session.group != nil {
		session.group.synchronizeFrom(session)
	}
	if !emptied {
		return nil
	}
	m.mu.Lock()
	delete(m.windows, win.ID)
	m.mu.Unlock()
	for _, p := range win.Panes() {
		m.destroyPane(p)
	}
	return nil
}

// AddPane spawns a pane, splits window's layout to make room for it, and
// registers it as the window's active pane (window_add_pane / split-window).
func (m *Manager) AddPane(win *Window, horizontal, before bool, cfg pane.Config) (*pane.Pane, error) {
	active := win.ActivePane()
	if active == nil {
		return nil, fmt.Errorf("mux: window %d has no active pane to split", win.ID)
	}
	p, err := m.spawnPane(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("mux: split window %d: %w", win.ID, err)
	}
	newLayout, err := layout.Split(win.Layout(), active.ID, horizontal, before, p.ID, 0)
	if err != nil {
		m.destroyPane(p)
		return nil, err
	}
	win.SetLayout(newLayout)
	win.windowAddPane(p)
	return p, nil
}

// RemovePane closes paneID's pane and its layout cell, selecting a new
// active pane by MRU order (window_remove_pane / kill-pane).
func (m *Manager) RemovePane(win *Window, p *pane.Pane) error {
	newLayout, err := layout.Close(win.Layout(), p.ID)
	if err != nil {
		return err
	}
	win.SetLayout(newLayout)
	win.windowRemovePane(p.ID)
	return m.destroyPane(p)
}

// KillSession destroys every window in session (that has no other
// reference) and removes it from the manager (tmux's `kill-session`).
func (m *Manager) KillSession(session *Session) error {
	for _, wl := range session.Winlinks() {
		if _, err := m.killSessionWindow(session, wl.Index); err != nil {
			return err
		}
	}
	m.mu.Lock()
	delete(m.sessions, session.Name)
	m.mu.Unlock()
	if session.group != nil {
		session.group.synchronizeFrom(session)
	}
	return nil
}

// killSessionWindow is KillWindow's body factored out so KillSession can
// call it while iterating a snapshot of winlinks taken before any removal.
func (m *Manager) killSessionWindow(session *Session, index int) (bool, error) {
	emptied, win, err := session.winlinkRemove(index)
	if err != nil {
		return false, err
	}
	if !emptied {
		return false, nil
	}
	m.mu.Lock()
	delete(m.windows, win.ID)
	m.mu.Unlock()
	for _, p := range win.Panes() {
		m.destroyPane(p)
	}
	return true, nil
}

// Group creates a new session group containing the given sessions
// (tmux's `new-session -t` / `-s ... -t`), synchronizing their winlink
// trees to match the first session's.
func (m *Manager) Group(sessions ...*Session) *SessionGroup {
	m.mu.Lock()
	gid := m.nextGroupID
	m.nextGroupID++
	m.mu.Unlock()

	g := &SessionGroup{ID: gid, sessions: sessions}
	for _, s := range sessions {
		s.group = g
	}
	if len(sessions) > 0 {
		g.synchronizeFrom(sessions[0])
	}
	return g
}
