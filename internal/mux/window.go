// Package mux owns the session/window/pane-link data model (§4.F): windows
// shared across sessions through reference-counted winlinks, an MRU stack
// per session for "last window" navigation, and session groups whose
// winlink trees stay synchronized.
package mux

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tmuxcore/tmuxd/internal/layout"
	"github.com/tmuxcore/tmuxd/internal/pane"
)

// Window is a named, laid-out collection of panes. A window is not owned by
// any single session: it is referenced by zero or more Winlinks, and is
// destroyed only when its last winlink is removed (refcount reaches zero).
type Window struct {
	ID   int
	Name string

	mu           sync.Mutex
	layout       *layout.Cell
	panes        map[string]*pane.Pane
	activePaneID string
	mruPanes     []string // most-recently-active pane ids, front = most recent
	refs         int
}

func newWindow(id int, name string) *Window {
	return &Window{ID: id, Name: name, panes: map[string]*pane.Pane{}}
}

// Layout returns the window's current layout tree.
func (w *Window) Layout() *layout.Cell {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.layout
}

// SetLayout replaces the window's layout tree (e.g. after Split/Close/Resize).
func (w *Window) SetLayout(c *layout.Cell) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.layout = c
}

// Panes returns every pane in the window in layout order.
func (w *Window) Panes() []*pane.Pane {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.layout == nil {
		out := make([]*pane.Pane, 0, len(w.panes))
		for _, p := range w.panes {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}
	ids := layout.Panes(w.layout)
	out := make([]*pane.Pane, 0, len(ids))
	for _, id := range ids {
		if p, ok := w.panes[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ActivePane returns the window's currently active pane, or nil if empty.
func (w *Window) ActivePane() *pane.Pane {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.panes[w.activePaneID]
}

// windowAddPane registers p in the window, making it active and pushing the
// prior active pane to the front of the MRU stack (window_add_pane).
func (w *Window) windowAddPane(p *pane.Pane) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.panes[p.ID] = p
	if w.activePaneID != "" {
		w.mruPanes = pushMRU(w.mruPanes, w.activePaneID)
	}
	w.activePaneID = p.ID
}

// windowRemovePane unregisters a pane and, if it was active, selects the
// next active pane by MRU order, falling back to the first remaining pane in
// layout order when the MRU stack is empty (window_remove_pane).
func (w *Window) windowRemovePane(paneID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.panes, paneID)
	w.mruPanes = removeMRU(w.mruPanes, paneID)

	if w.activePaneID != paneID {
		return
	}
	w.activePaneID = ""
	for len(w.mruPanes) > 0 {
		candidate := w.mruPanes[0]
		w.mruPanes = w.mruPanes[1:]
		if _, ok := w.panes[candidate]; ok {
			w.activePaneID = candidate
			return
		}
	}
	if w.layout != nil {
		for _, id := range layout.Panes(w.layout) {
			if _, ok := w.panes[id]; ok {
				w.activePaneID = id
				return
			}
		}
	}
	for id := range w.panes {
		w.activePaneID = id
		return
	}
}

// SetActivePane makes paneID active, pushing the previous active pane onto
// the MRU stack.
func (w *Window) SetActivePane(paneID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.panes[paneID]; !ok {
		return fmt.Errorf("mux: window %d has no pane %s", w.ID, paneID)
	}
	if w.activePaneID != "" && w.activePaneID != paneID {
		w.mruPanes = pushMRU(w.mruPanes, w.activePaneID)
	}
	w.activePaneID = paneID
	return nil
}

func pushMRU(stack []string, id string) []string {
	stack = removeMRU(stack, id)
	return append([]string{id}, stack...)
}

func removeMRU(stack []string, id string) []string {
	out := stack[:0:0]
	for _, s := range stack {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

func (w *Window) addRef() {
	w.mu.Lock()
	w.refs++
	w.mu.Unlock()
}

// releaseRef drops a reference, reporting whether it was the last one.
func (w *Window) releaseRef() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refs--
	return w.refs <= 0
}
