package mux

import (
	"fmt"
	"sync"
	"time"
)

// Session is a named, ordered tree of winlinks plus an MRU stack of window
// indices used for `last-window` navigation. Sessions in the same group
// (see SessionGroup) share the same winlinks.
type Session struct {
	ID        int
	Name      string
	CreatedAt time.Time

	mu           sync.Mutex
	winlinks     map[int]*Winlink
	order        []int // winlink indices, ascending
	currentIndex int
	mruIndices   []int // most-recently-active window indices, front = most recent

	group *SessionGroup

	attached int
}

func newSession(id int, name string) *Session {
	return &Session{
		ID:           id,
		Name:         name,
		CreatedAt:    time.Now(),
		winlinks:     map[int]*Winlink{},
		currentIndex: -1,
	}
}

func errWinlinkIndexTaken(index int) error {
	return fmt.Errorf("mux: winlink index %d already in use", index)
}

func errNoWinlink(index int) error {
	return fmt.Errorf("mux: no winlink at index %d", index)
}

// CurrentWindow returns the session's active window, or nil if it has none.
func (s *Session) CurrentWindow() *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wl, ok := s.winlinks[s.currentIndex]; ok {
		return wl.Window
	}
	return nil
}

// Winlinks returns the session's winlinks in ascending index order.
func (s *Session) Winlinks() []*Winlink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Winlink, 0, len(s.order))
	for _, idx := range s.order {
		out = append(out, s.winlinks[idx])
	}
	return out
}

// SetCurrentWindow switches the session's active window to the winlink at
// index, pushing the previous one to the MRU stack.
func (s *Session) SetCurrentWindow(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.winlinks[index]; !ok {
		return errNoWinlink(index)
	}
	if s.currentIndex >= 0 && s.currentIndex != index {
		s.mruIndices = pushMRUInt(s.mruIndices, s.currentIndex)
	}
	s.currentIndex = index
	return nil
}

// LastWindow switches to the most recently active window before the current
// one, tmux's `last-window` / prefix-l behavior.
func (s *Session) LastWindow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.mruIndices) > 0 {
		idx := s.mruIndices[0]
		s.mruIndices = s.mruIndices[1:]
		if _, ok := s.winlinks[idx]; ok {
			if s.currentIndex >= 0 {
				s.mruIndices = pushMRUInt(s.mruIndices, s.currentIndex)
			}
			s.currentIndex = idx
			return nil
		}
	}
	return fmt.Errorf("mux: session %s has no previous window", s.Name)
}

func pushMRUInt(stack []int, v int) []int {
	stack = removeMRUInt(stack, v)
	return append([]int{v}, stack...)
}

func removeMRUInt(stack []int, v int) []int {
	out := stack[:0:0]
	for _, s := range stack {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// Attach marks one more client attached to the session (session_attach).
func (s *Session) Attach() {
	s.mu.Lock()
	s.attached++
	s.mu.Unlock()
}

// Detach marks a client detached, reporting the remaining attached count.
func (s *Session) Detach() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached > 0 {
		s.attached--
	}
	return s.attached
}

// Attached reports how many clients currently have this session attached.
func (s *Session) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// SessionGroup is a set of sessions that share one winlink tree: a change
// to one member's windows is visible to every other member, though each
// session keeps its own current-window and MRU stack (tmux's actual
// grouped-session behavior — clients diverge on *what they're looking at*,
// not on *what windows exist*).
type SessionGroup struct {
	ID       int
	mu       sync.Mutex
	sessions []*Session
}

// Sessions returns the group's member sessions.
func (g *SessionGroup) Sessions() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Session, len(g.sessions))
	copy(out, g.sessions)
	return out
}

// synchronizeFrom copies src's winlink tree (session_group_synchronize_from)
// onto every other member of the group, so `new-window`/`kill-window`/
// `move-window` performed against one grouped session is immediately
// reflected in its siblings. Each member keeps its own currentIndex and MRU
// stack; only the set of winlinks and their window targets are shared.
func (g *SessionGroup) synchronizeFrom(src *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	src.mu.Lock()
	snapshot := make(map[int]*Window, len(src.winlinks))
	for idx, wl := range src.winlinks {
		snapshot[idx] = wl.Window
	}
	order := append([]int(nil), src.order...)
	src.mu.Unlock()

	for _, dst := range g.sessions {
		if dst == src {
			continue
		}
		dst.mu.Lock()
		for _, wl := range dst.winlinks {
			wl.Window.releaseRef()
		}
		dst.winlinks = map[int]*Winlink{}
		for idx, w := range snapshot {
			dst.winlinks[idx] = &Winlink{Index: idx, Window: w}
			w.addRef()
		}
		dst.order = append([]int(nil), order...)
		if _, ok := dst.winlinks[dst.currentIndex]; !ok {
			if len(dst.order) > 0 {
				dst.currentIndex = dst.order[0]
			} else {
				dst.currentIndex = -1
			}
		}
		dst.mu.Unlock()
	}
}
