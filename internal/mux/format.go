package mux

import (
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/tmuxcore/tmuxd/internal/pane"
)

var formatVarPattern = regexp.MustCompile(`#\{([^}]+)\}`)

// Default list-* formats, tmux's own defaults trimmed to the variables this
// package actually resolves.
const (
	DefaultSessionListFormat = "#{session_name}: #{session_windows} windows (created #{session_created_human})"
	DefaultWindowListFormat  = "#{window_index}: #{window_name} (#{window_panes} panes)"
	DefaultPaneListFormat    = "#{pane_id}: #{pane_width}x#{pane_height}#{pane_active_suffix}"
)

// formatScope bundles the session/window/pane a format string is expanded
// against. Any field may be nil: list-sessions has no window or pane,
// list-windows has no pane, and lookupFormatVariable falls back to an
// empty/zero value rather than panic on a nil scope member.
type formatScope struct {
	session *Session
	window  *Window
	pane    *pane.Pane
}

// ExpandFormat expands tmux-style #{var} placeholders in format against the
// given session/window/pane (tmux's `-F` format string support on
// list-sessions/list-windows/list-panes). Unknown variables expand to "".
func ExpandFormat(format string, session *Session, window *Window, p *pane.Pane) string {
	scope := formatScope{session: session, window: window, pane: p}
	return formatVarPattern.ReplaceAllStringFunc(format, func(match string) string {
		parts := formatVarPattern.FindStringSubmatch(match)
		if len(parts) != 2 {
			return ""
		}
		return lookupFormatVariable(parts[1], scope)
	})
}

func lookupFormatVariable(name string, scope formatScope) string {
	switch name {
	case "session_name":
		if scope.session == nil {
			return ""
		}
		return scope.session.Name
	case "session_windows":
		if scope.session == nil {
			return "0"
		}
		return strconv.Itoa(len(scope.session.Winlinks()))
	case "session_created":
		if scope.session == nil {
			return "0"
		}
		return strconv.FormatInt(scope.session.CreatedAt.Unix(), 10)
	case "session_created_human":
		if scope.session == nil {
			return ""
		}
		return humanize.Time(scope.session.CreatedAt)
	case "window_index":
		if scope.window == nil {
			return "0"
		}
		return strconv.Itoa(scope.window.ID)
	case "window_name":
		if scope.window == nil {
			return ""
		}
		return scope.window.Name
	case "window_panes":
		if scope.window == nil {
			return "0"
		}
		return strconv.Itoa(len(scope.window.Panes()))
	case "window_active":
		if scope.window == nil || scope.session == nil {
			return "0"
		}
		if cur := scope.session.CurrentWindow(); cur != nil && cur.ID == scope.window.ID {
			return "1"
		}
		return "0"
	case "pane_id":
		if scope.pane == nil {
			return ""
		}
		return scope.pane.ID
	case "pane_width", "pane_height":
		if scope.pane == nil {
			return "0"
		}
		cols, rows := scope.pane.Size()
		if name == "pane_width" {
			return strconv.Itoa(cols)
		}
		return strconv.Itoa(rows)
	case "pane_active":
		if scope.pane == nil || scope.window == nil {
			return "0"
		}
		if active := scope.window.ActivePane(); active != nil && active.ID == scope.pane.ID {
			return "1"
		}
		return "0"
	case "pane_active_suffix":
		if scope.pane == nil || scope.window == nil {
			return ""
		}
		if active := scope.window.ActivePane(); active != nil && active.ID == scope.pane.ID {
			return " (active)"
		}
		return ""
	default:
		return ""
	}
}
