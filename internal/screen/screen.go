// Package screen implements the buffered mutation API (§4.C) over a grid: a
// logical VT view with cursor, scroll region, modes and tab stops.
package screen

import (
	"github.com/tmuxcore/tmuxd/internal/grid"
)

// Screen is a logical view over a grid: cursor, modes, regions, and an
// optional alternate-screen grid (§3).
type Screen struct {
	Grid *grid.Grid

	CX, CY int // cursor position; 0 <= CX <= SX, 0 <= CY < SY
	SX, SY int

	RUpper, RLower int // scroll region rows, inclusive
	RLeft, RRight  int // scroll region columns, inclusive (horizontal margins)

	Mode        Mode
	CursorStyle CursorStyle
	CursorColor grid.ColorSpec

	TabStops []bool

	Title string
	Path  string

	titleStack []string
	pathStack  []string

	// Hyperlinks is the per-screen hyperlink table; index 0 means "none".
	Hyperlinks []string

	// alt holds the alternate-screen saved grid (MODE_ALTSCREEN / CSI ?1049).
	alt     *grid.Grid
	altSave struct {
		cx, cy int
	}

	wrapped bool // pending wrap: last column written was the final column
}

// New creates a screen of the given size with hlimit scrollback lines.
func New(sx, sy, hlimit int) *Screen {
	s := &Screen{
		Grid:   grid.New(sx, sy, hlimit),
		SX:     sx,
		SY:     sy,
		RUpper: 0,
		RLower: sy - 1,
		RLeft:  0,
		RRight: sx - 1,
		Mode:   ModeWrap | ModeCursorVisible,
	}
	s.resetTabStops()
	s.Hyperlinks = []string{""}
	return s
}

func (s *Screen) resetTabStops() {
	s.TabStops = make([]bool, s.SX)
	for i := 0; i < s.SX; i += 8 {
		s.TabStops[i] = true
	}
}

// ModeSet and ModeClear toggle screen modes. Mouse/keyboard mode changes are
// picked up by the renderer's tty_update_mode-equivalent on next flush.
func (s *Screen) ModeSet(m Mode)   { s.Mode |= m }
func (s *Screen) ModeClear(m Mode) { s.Mode &^= m }
func (s *Screen) ModeHas(m Mode) bool { return s.Mode&m != 0 }

// HyperlinkID returns the table index for url, adding it if new.
func (s *Screen) HyperlinkID(url string) uint32 {
	if url == "" {
		return 0
	}
	for i, u := range s.Hyperlinks {
		if u == url {
			return uint32(i)
		}
	}
	s.Hyperlinks = append(s.Hyperlinks, url)
	return uint32(len(s.Hyperlinks) - 1)
}

// PushTitle/PopTitle implement the title stack (XTWINOPS 22/23).
func (s *Screen) PushTitle() { s.titleStack = append(s.titleStack, s.Title) }
func (s *Screen) PopTitle() {
	if n := len(s.titleStack); n > 0 {
		s.Title = s.titleStack[n-1]
		s.titleStack = s.titleStack[:n-1]
	}
}

func (s *Screen) PushPath() { s.pathStack = append(s.pathStack, s.Path) }
func (s *Screen) PopPath() {
	if n := len(s.pathStack); n > 0 {
		s.Path = s.pathStack[n-1]
		s.pathStack = s.pathStack[:n-1]
	}
}

// EnterAlt switches to the alternate screen grid (CSI ?1049h), saving the
// current grid and cursor for later restoration.
func (s *Screen) EnterAlt() {
	if s.alt != nil {
		return
	}
	s.alt = s.Grid
	s.altSave.cx, s.altSave.cy = s.CX, s.CY
	s.Grid = grid.New(s.SX, s.SY, 0)
	s.ModeSet(ModeAltScreen)
	s.CX, s.CY = 0, 0
}

// ExitAlt restores the primary grid saved by EnterAlt.
func (s *Screen) ExitAlt() {
	if s.alt == nil {
		return
	}
	s.Grid = s.alt
	s.alt = nil
	s.CX, s.CY = s.altSave.cx, s.altSave.cy
	s.ModeClear(ModeAltScreen)
}

// Resize changes the screen dimensions, reflowing the grid's width and
// adjusting the visible row count, region bounds and cursor clamping.
func (s *Screen) Resize(sx, sy int) {
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}
	if sx != s.SX {
		s.Grid.Reflow(sx)
	}
	s.Grid.Resize(sy)
	s.SX, s.SY = sx, sy
	if s.RLower >= sy {
		s.RLower = sy - 1
	}
	if s.RUpper > s.RLower {
		s.RUpper = 0
	}
	if s.RRight >= sx {
		s.RRight = sx - 1
	}
	s.resetTabStops()
	if s.CX > sx {
		s.CX = sx
	}
	if s.CY >= sy {
		s.CY = sy - 1
	}
}

// AbsY converts a screen row to its absolute grid row (accounting for
// history).
func (s *Screen) AbsY(y int) int { return s.Grid.HSize + y }
