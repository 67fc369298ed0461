// Package target resolves tmux-style target strings ("session:window.pane")
// against an internal/mux.Manager (§4.G): exact, prefix and glob session/
// window name matching with ambiguity detection, "%pane-id"/"@window-id"
// forms, and a fallback ladder down to the caller's current context.
package target

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tmuxcore/tmuxd/internal/layout"
	"github.com/tmuxcore/tmuxd/internal/mux"
	"github.com/tmuxcore/tmuxd/internal/pane"
)

// Context is the caller's current location, used as the fallback when a
// target string omits a session, window or pane component.
type Context struct {
	Session *mux.Session
	Window  *mux.Window
	Pane    *pane.Pane
}

// Resolved is the outcome of resolving a target string.
type Resolved struct {
	Session *mux.Session
	Window  *mux.Window
	Pane    *pane.Pane
}

// Resolver looks up sessions/windows against a mux.Manager.
type Resolver struct {
	m *mux.Manager
}

// New creates a Resolver backed by m.
func New(m *mux.Manager) *Resolver {
	return &Resolver{m: m}
}

// Resolve parses target and resolves it to a session/window/pane, falling
// back to fields of ctx for any component the target string leaves
// unspecified (the fallback ladder: pane id, then window.pane within the
// context session, then session name, then the context itself).
func (r *Resolver) Resolve(target string, ctx Context) (Resolved, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		if ctx.Pane == nil {
			return Resolved{}, fmt.Errorf("target: no current pane and no target given")
		}
		return Resolved{Session: ctx.Session, Window: ctx.Window, Pane: ctx.Pane}, nil
	}

	if strings.HasPrefix(target, "%") {
		return r.resolvePaneID(target, ctx)
	}

	if isDirectionToken(target) {
		return r.resolveDirection("", target, ctx)
	}

	sessionPart, rest, hasColon := strings.Cut(target, ":")
	if isDirectionToken(rest) {
		return r.resolveDirection(sessionPart, rest, ctx)
	}

	var sess *mux.Session
	var err error
	if sessionPart != "" {
		sess, err = r.resolveSession(sessionPart)
		if err != nil {
			return Resolved{}, err
		}
	} else {
		sess = ctx.Session
	}
	if sess == nil {
		return Resolved{}, fmt.Errorf("target: no session in %q and no current session", target)
	}

	if !hasColon || strings.TrimSpace(rest) == "" {
		win := sess.CurrentWindow()
		if win == nil {
			return Resolved{}, fmt.Errorf("target: session %s has no current window", sess.Name)
		}
		return Resolved{Session: sess, Window: win, Pane: win.ActivePane()}, nil
	}

	windowPart, panePart, hasPane := strings.Cut(rest, ".")
	win, err := r.resolveWindow(sess, windowPart)
	if err != nil {
		return Resolved{}, err
	}

	if !hasPane || strings.TrimSpace(panePart) == "" {
		return Resolved{Session: sess, Window: win, Pane: win.ActivePane()}, nil
	}
	p, err := r.resolvePaneInWindow(win, panePart)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Session: sess, Window: win, Pane: p}, nil
}

func (r *Resolver) resolvePaneID(target string, ctx Context) (Resolved, error) {
	for _, s := range r.m.Sessions() {
		for _, wl := range s.Winlinks() {
			for _, p := range wl.Window.Panes() {
				if p.ID == target {
					return Resolved{Session: s, Window: wl.Window, Pane: p}, nil
				}
			}
		}
	}
	return Resolved{}, fmt.Errorf("target: pane %s not found", target)
}

// resolveSession finds a session by exact name, then by unambiguous prefix,
// then by unambiguous glob match, erroring on ambiguity at each stage
// before falling through to the next (tmux's actual resolution ladder).
func (r *Resolver) resolveSession(name string) (*mux.Session, error) {
	exact := strings.TrimPrefix(name, "=")
	if s, ok := r.m.Session(exact); ok {
		return s, nil
	}
	if strings.HasPrefix(name, "=") {
		return nil, fmt.Errorf("target: session %s not found", exact)
	}

	var prefixMatches []*mux.Session
	for _, s := range r.m.Sessions() {
		if strings.HasPrefix(s.Name, name) {
			prefixMatches = append(prefixMatches, s)
		}
	}
	if len(prefixMatches) == 1 {
		return prefixMatches[0], nil
	}
	if len(prefixMatches) > 1 {
		return nil, fmt.Errorf("target: session %s is ambiguous (%d matches)", name, len(prefixMatches))
	}

	var globMatches []*mux.Session
	for _, s := range r.m.Sessions() {
		if ok, _ := filepath.Match(name, s.Name); ok {
			globMatches = append(globMatches, s)
		}
	}
	if len(globMatches) == 1 {
		return globMatches[0], nil
	}
	if len(globMatches) > 1 {
		return nil, fmt.Errorf("target: session pattern %s is ambiguous (%d matches)", name, len(globMatches))
	}
	return nil, fmt.Errorf("target: session %s not found", name)
}

// resolveWindow finds a window within session by "@id" form, numeric index,
// exact name, unambiguous prefix, then unambiguous glob.
func (r *Resolver) resolveWindow(sess *mux.Session, windowPart string) (*mux.Window, error) {
	windowPart = strings.TrimSpace(windowPart)
	if after, ok := strings.CutPrefix(windowPart, "@"); ok {
		id, err := strconv.Atoi(after)
		if err != nil {
			return nil, fmt.Errorf("target: invalid window id %s", windowPart)
		}
		w, ok := r.m.Window(id)
		if !ok {
			return nil, fmt.Errorf("target: window id %d not found", id)
		}
		return w, nil
	}
	if idx, err := strconv.Atoi(windowPart); err == nil {
		for _, wl := range sess.Winlinks() {
			if wl.Index == idx {
				return wl.Window, nil
			}
		}
		return nil, fmt.Errorf("target: window index %d not found", idx)
	}

	var exact, prefix, glob []*mux.Window
	for _, wl := range sess.Winlinks() {
		w := wl.Window
		switch {
		case w.Name == windowPart:
			exact = append(exact, w)
		case strings.HasPrefix(w.Name, windowPart):
			prefix = append(prefix, w)
		default:
			if ok, _ := filepath.Match(windowPart, w.Name); ok {
				glob = append(glob, w)
			}
		}
	}
	for _, group := range [][]*mux.Window{exact, prefix, glob} {
		if len(group) == 1 {
			return group[0], nil
		}
		if len(group) > 1 {
			return nil, fmt.Errorf("target: window %s is ambiguous (%d matches)", windowPart, len(group))
		}
	}
	return nil, fmt.Errorf("target: window %s not found", windowPart)
}

func (r *Resolver) resolvePaneInWindow(win *mux.Window, panePart string) (*pane.Pane, error) {
	panePart = strings.TrimSpace(panePart)
	if strings.HasPrefix(panePart, "%") {
		for _, p := range win.Panes() {
			if p.ID == panePart {
				return p, nil
			}
		}
		return nil, fmt.Errorf("target: pane %s not found in window", panePart)
	}
	idx, err := strconv.Atoi(panePart)
	if err != nil {
		return nil, fmt.Errorf("target: invalid pane index %s", panePart)
	}
	panes := win.Panes()
	if idx < 0 || idx >= len(panes) {
		return nil, fmt.Errorf("target: pane index %d out of range", idx)
	}
	return panes[idx], nil
}

func isDirectionToken(s string) bool {
	switch strings.TrimSpace(s) {
	case "{left}", "{right}", "{up}", "{down}", "{next}", "{previous}", "{last}":
		return true
	}
	return false
}

// resolveDirection resolves a "{left}"/"{right}"/"{up}"/"{down}" pane
// navigation token relative to ctx's active pane, using the layout tree's
// geometry to pick the neighbor across the nearest border. "{next}"/
// "{previous}" resolve to the window after/before the current one in index
// order, wrapping around; "{last}" switches the session to its previous
// window in MRU order (Session.LastWindow) and resolves to it.
func (r *Resolver) resolveDirection(sessionPart, token string, ctx Context) (Resolved, error) {
	sess := ctx.Session
	var err error
	if sessionPart != "" {
		sess, err = r.resolveSession(sessionPart)
		if err != nil {
			return Resolved{}, err
		}
	}
	if sess == nil {
		return Resolved{}, fmt.Errorf("target: direction token needs a current session")
	}

	switch strings.TrimSpace(token) {
	case "{last}":
		if err := sess.LastWindow(); err != nil {
			return Resolved{}, err
		}
		win := sess.CurrentWindow()
		return Resolved{Session: sess, Window: win, Pane: win.ActivePane()}, nil
	case "{next}", "{previous}":
		wls := sess.Winlinks()
		cur := sess.CurrentWindow()
		for i, wl := range wls {
			if wl.Window != cur {
				continue
			}
			step := 1
			if strings.TrimSpace(token) == "{previous}" {
				step = len(wls) - 1
			}
			win := wls[(i+step)%len(wls)].Window
			return Resolved{Session: sess, Window: win, Pane: win.ActivePane()}, nil
		}
		return Resolved{}, fmt.Errorf("target: session %s has no current window", sess.Name)
	}

	win := ctx.Window
	if win == nil {
		win = sess.CurrentWindow()
	}
	if win == nil || ctx.Pane == nil {
		return Resolved{}, fmt.Errorf("target: direction token needs a current window and pane")
	}
	neighbor, err := neighborInDirection(win, ctx.Pane, token)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Session: sess, Window: win, Pane: neighbor}, nil
}

func neighborInDirection(win *mux.Window, p *pane.Pane, token string) (*pane.Pane, error) {
	root := win.Layout()
	cell := layout.FindPane(root, p.ID)
	if cell == nil {
		return nil, fmt.Errorf("target: pane %s has no layout cell", p.ID)
	}
	probeX, probeY := cell.X, cell.Y
	switch token {
	case "{left}":
		probeX = cell.X - 1
		probeY = cell.Y + cell.SY/2
	case "{right}":
		probeX = cell.X + cell.SX
		probeY = cell.Y + cell.SY/2
	case "{up}":
		probeX = cell.X + cell.SX/2
		probeY = cell.Y - 1
	case "{down}":
		probeX = cell.X + cell.SX/2
		probeY = cell.Y + cell.SY
	}
	target := findCellAt(root, probeX, probeY)
	if target == nil || target.PaneID == p.ID {
		return nil, fmt.Errorf("target: no pane in direction %s", token)
	}
	for _, candidate := range win.Panes() {
		if candidate.ID == target.PaneID {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("target: no pane in direction %s", token)
}

func findCellAt(root *layout.Cell, x, y int) *layout.Cell {
	if root == nil {
		return nil
	}
	if x < root.X || x >= root.X+root.SX || y < root.Y || y >= root.Y+root.SY {
		return nil
	}
	if root.Kind == layout.KindPane {
		return root
	}
	for _, c := range root.Children {
		if found := findCellAt(c, x, y); found != nil {
			return found
		}
	}
	return nil
}
