package tty

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/x/ansi"

	"github.com/tmuxcore/tmuxd/internal/grid"
	"github.com/tmuxcore/tmuxd/internal/screen"
)

// beginSync/endSync are tmux's synchronized-output DCS wrapper (tty.c's
// tty_sync_start/tty_sync_end): a terminal that understands it buffers the
// whole frame and paints it atomically instead of mid-frame tearing. This is
// a distinct wire form from the CSI ?2026 private-mode synchronized update
// some terminals/libraries use instead, so it is kept as its own constant
// rather than built from a generic ansi helper.
const (
	beginSync = "\x1bP=1s\x1b\\"
	endSync   = "\x1bP=2s\x1b\\"
)

type cachedLine struct {
	digest uint64
	cells  []grid.Cell
}

// Writer renders a screen's dirty regions as a minimal byte stream for one
// attached client, caching the last frame it sent so unchanged lines, and
// the unchanged leading cells of a changed line, are not retransmitted
// (§4.I render pipeline).
type Writer struct {
	caps *Capabilities

	cache    map[int]cachedLine
	cursorX  int
	cursorY  int
	haveFg   grid.ColorSpec
	haveBg   grid.ColorSpec
	haveAttr grid.Attr
	sgrValid bool // false until the first cell is written, forcing an initial SGR reset
}

// NewWriter creates a Writer for a client with the given capabilities.
func NewWriter(caps *Capabilities) *Writer {
	if caps == nil {
		caps = &Capabilities{}
	}
	return &Writer{caps: caps, cache: map[int]cachedLine{}}
}

// Reset drops the writer's cache, forcing the next Render to repaint every
// line — used after a client reattaches or the server recreates its socket.
func (w *Writer) Reset() {
	w.cache = map[int]cachedLine{}
	w.sgrValid = false
}

// Render diffs s's visible screen against the writer's cache and returns
// the escape sequence bytes needed to bring the client's terminal in sync.
// Call sites run this inside the single-threaded render pass, after a
// client's dirty flags (REDRAW_PANES etc.) are set and before they're
// cleared, so it's safe to call Render even when nothing actually changed
// (it degrades to a handful of bytes when the cache already matches).
func (w *Writer) Render(s *screen.Screen) []byte {
	var buf bytes.Buffer
	if w.caps.syncUpdate {
		buf.WriteString(beginSync)
	}

	for y := 0; y < s.SY; y++ {
		line := s.Grid.PeekLine(s.Grid.HSize + y)
		digest := line.Digest()
		cached, ok := w.cache[y]
		if ok && cached.digest == digest {
			continue
		}
		w.renderLine(&buf, line, y, s.SX)
		w.cache[y] = cachedLine{digest: digest, cells: append([]grid.Cell(nil), line.Cells...)}
	}

	w.moveCursor(&buf, s.CX, s.CY)
	if s.ModeHas(screen.ModeCursorVisible) {
		buf.WriteString(ansi.ShowCursor)
	} else {
		buf.WriteString(ansi.HideCursor)
	}

	if w.caps.syncUpdate {
		buf.WriteString(endSync)
	}
	return buf.Bytes()
}

// renderLine emits the writes for one changed row: it skips the leading
// cells that match the cache, rewrites every cell from the first difference
// to the last used cell, and uses an erase-to-end-of-line when the row's
// tail is entirely default-blank.
func (w *Writer) renderLine(buf *bytes.Buffer, line *grid.Line, y, sx int) {
	used := line.CellUsed()

	start := 0
	if cached, ok := w.cache[y]; ok {
		for start < used && start < len(cached.cells) && cellEqual(cached.cells[start], line.CellAt(start)) {
			start++
		}
	}
	if start >= used {
		// Only the sparse blank tail changed (or nothing did): clear from
		// the first actually-different column to end of line.
		if cached, ok := w.cache[y]; ok && len(cached.cells) > used {
			w.moveCursor(buf, used, y)
			w.eraseToEOL(buf, sx-used)
		}
		return
	}

	w.moveCursor(buf, start, y)
	for x := start; x < used; x++ {
		cell := line.CellAt(x)
		w.applyAttrs(buf, cell)
		buf.WriteString(cell.String())
		w.cursorX += int(cell.Width)
	}
	if used < sx {
		w.eraseToEOL(buf, sx-used)
	}
}

func cellEqual(a, b grid.Cell) bool {
	return a.GraphemeLen == b.GraphemeLen && a.Grapheme == b.Grapheme &&
		a.Attr == b.Attr && a.Fg == b.Fg && a.Bg == b.Bg && a.Width == b.Width
}

// eraseToEOL clears n columns of default background from the cursor,
// preferring the terminal's "el"/"ech" capability over writing n spaces.
func (w *Writer) eraseToEOL(buf *bytes.Buffer, n int) {
	if n <= 0 {
		return
	}
	w.applyAttrs(buf, grid.Blank(grid.ColorSpec{}))
	if s, ok := w.caps.el(); ok {
		buf.WriteString(s)
		return
	}
	if s, ok := w.caps.ech(n); ok {
		buf.WriteString(s)
		return
	}
	for i := 0; i < n; i++ {
		buf.WriteByte(' ')
	}
	w.cursorX += n
}

// moveCursor emits a cursor-positioning sequence only when the writer's
// tracked position disagrees with (x,y); cup is always correct, hpa/vpa
// save a few bytes for same-row/same-column moves when available.
func (w *Writer) moveCursor(buf *bytes.Buffer, x, y int) {
	if x == w.cursorX && y == w.cursorY {
		return
	}
	switch {
	case y == w.cursorY && w.caps.hasHpa:
		buf.WriteString(w.caps.hpa(x))
	case x == w.cursorX && w.caps.hasVpa:
		buf.WriteString(w.caps.vpa(y))
	default:
		buf.WriteString(w.caps.cup(y, x))
	}
	w.cursorX, w.cursorY = x, y
}

// applyAttrs writes nothing when cell's attributes and colors match the
// writer's last-known pen state; otherwise it resets with sgr0 and writes
// cell's full attribute and color set. Changes are not emitted as deltas.
func (w *Writer) applyAttrs(buf *bytes.Buffer, cell grid.Cell) {
	if w.sgrValid && cell.Attr == w.haveAttr && cell.Fg == w.haveFg && cell.Bg == w.haveBg {
		return
	}
	buf.WriteString(w.caps.sgr0())
	if cell.Attr&grid.AttrBold != 0 {
		buf.WriteString(ansi.BoldStyle)
	}
	if cell.Attr&grid.AttrDim != 0 {
		buf.WriteString(ansi.FaintStyle)
	}
	if cell.Attr&grid.AttrItalic != 0 {
		buf.WriteString(ansi.ItalicStyle)
	}
	if cell.Attr&grid.AttrReverse != 0 {
		buf.WriteString(ansi.ReverseStyle)
	}
	if cell.Attr&grid.AttrBlink != 0 {
		buf.WriteString(ansi.BlinkStyle)
	}
	if cell.Attr&grid.AttrHidden != 0 {
		buf.WriteString(ansi.ConcealStyle)
	}
	if cell.Attr&grid.AttrStrikethrough != 0 {
		buf.WriteString(ansi.StrikethroughStyle)
	}
	w.writeColor(buf, cell.Fg, true)
	w.writeColor(buf, cell.Bg, false)
	w.haveAttr, w.haveFg, w.haveBg = cell.Attr, cell.Fg, cell.Bg
	w.sgrValid = true
}

func (w *Writer) writeColor(buf *bytes.Buffer, c grid.ColorSpec, fg bool) {
	c = downsample(c, w.caps.MaxColors())
	switch c.Mode {
	case grid.ColorDefault:
		return
	case grid.ColorRGB:
		if fg {
			fmt.Fprintf(buf, "\x1b[38;2;%d;%d;%dm", c.R, c.G, c.B)
		} else {
			fmt.Fprintf(buf, "\x1b[48;2;%d;%d;%dm", c.R, c.G, c.B)
		}
	case grid.ColorIndexed:
		if fg {
			if s, ok := w.caps.setaf(int(c.Index)); ok {
				buf.WriteString(s)
				return
			}
		} else {
			if s, ok := w.caps.setab(int(c.Index)); ok {
				buf.WriteString(s)
				return
			}
		}
		if c.Index < 16 {
			base := 30
			if !fg {
				base = 40
			}
			idx := int(c.Index)
			if idx >= 8 {
				base += 60
				idx -= 8
			}
			fmt.Fprintf(buf, "\x1b[%dm", base+idx)
			return
		}
		if fg {
			fmt.Fprintf(buf, "\x1b[38;5;%dm", c.Index)
		} else {
			fmt.Fprintf(buf, "\x1b[48;5;%dm", c.Index)
		}
	}
}
