package grid

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// LineFlags records per-line metadata used by the parser and the renderer.
type LineFlags uint8

const (
	LineWrapped LineFlags = 1 << iota
	LineExtended
	LineDead
	LinePromptStart
	LineOutputStart
)

// Line is one row of cells, plus the extended-attribute storage its cells
// may reference.
type Line struct {
	Cells    []Cell
	Extended []ExtCell
	Flags    LineFlags
	Stamp    time.Time
}

func newBlankLine(width int, bg ColorSpec) *Line {
	l := &Line{Cells: make([]Cell, 0, width), Stamp: time.Now()}
	return l
}

// CellAt returns the cell at x, or a blank default cell if x is beyond the
// line's used length (the line's sparse tail).
func (l *Line) CellAt(x int) Cell {
	if l == nil || x < 0 || x >= len(l.Cells) {
		return Blank(ColorSpec{})
	}
	return l.Cells[x]
}

// ExtAt resolves a cell's extended attributes, or the zero value if the
// cell carries none.
func (l *Line) ExtAt(x int) ExtCell {
	c := l.CellAt(x)
	if !c.IsExtended || int(c.ExtIndex) >= len(l.Extended) {
		return ExtCell{}
	}
	return l.Extended[c.ExtIndex]
}

// SetCell writes a cell at x, extending the backing array as needed and
// promoting to an extended entry when ext is non-default.
func (l *Line) SetCell(x int, c Cell, ext ExtCell) {
	for len(l.Cells) <= x {
		l.Cells = append(l.Cells, Blank(ColorSpec{}))
	}
	if !ext.isDefault() {
		c.IsExtended = true
		c.ExtIndex = int32(len(l.Extended))
		l.Extended = append(l.Extended, ext)
	} else {
		c.IsExtended = false
		c.ExtIndex = 0
	}
	l.Cells[x] = c
	l.Stamp = time.Now()
	l.trimTail()
}

// trimTail drops trailing default-blank cells so CellUsed reflects the last
// non-default cell, matching the grid invariant that cellused is the index
// past the last non-default cell.
func (l *Line) trimTail() {
	n := len(l.Cells)
	for n > 0 && l.Cells[n-1].IsBlank() {
		n--
	}
	l.Cells = l.Cells[:n]
}

// CellUsed is the count of cells materialized in the line (its sparse tail
// beyond this index reads as default blanks).
func (l *Line) CellUsed() int {
	return len(l.Cells)
}

// Digest returns a fast hash of the line's visible content, used by the
// render pipeline to skip re-sending unchanged lines.
func (l *Line) Digest() uint64 {
	if l == nil || len(l.Cells) == 0 {
		return 0
	}
	h := xxhash.New()
	for _, c := range l.Cells {
		h.Write(c.Grapheme[:c.GraphemeLen])
		var meta [6]byte
		meta[0] = byte(c.Attr)
		meta[1] = byte(c.Attr >> 8)
		meta[2] = c.Width
		meta[3] = byte(c.Fg.Mode)<<4 | byte(c.Bg.Mode)
		meta[4] = c.Fg.Index
		meta[5] = c.Bg.Index
		h.Write(meta[:])
	}
	return h.Sum64()
}

// Grid is an ordered sequence of lines (history followed by the visible
// screen) plus the history-size bookkeeping described in spec §3/§4.A.
type Grid struct {
	Lines  []*Line // Lines[0:HSize] is history, Lines[HSize:HSize+SY] is the visible screen
	HSize  int
	SX, SY int
	HLimit int
}

// New creates a grid with sy blank visible lines and no history.
func New(sx, sy, hlimit int) *Grid {
	g := &Grid{SX: sx, SY: sy, HLimit: hlimit}
	g.Lines = make([]*Line, sy)
	for i := range g.Lines {
		g.Lines[i] = newBlankLine(sx, ColorSpec{})
	}
	return g
}

// PeekLine returns line y, where y ranges over [0, HSize+SY) across history
// and the visible screen.
func (g *Grid) PeekLine(y int) *Line {
	if y < 0 || y >= len(g.Lines) {
		return nil
	}
	return g.Lines[y]
}

// GetCell fills out with the cell at (x, y), defaulting to blank past the
// line's materialized length.
func (g *Grid) GetCell(x, y int) Cell {
	return g.PeekLine(y).CellAt(x)
}

// SetCell writes a cell at (x, y), extending the grid's line list if y is
// beyond the current length (used while building history during reflow).
func (g *Grid) SetCell(x, y int, c Cell, ext ExtCell) {
	for len(g.Lines) <= y {
		g.Lines = append(g.Lines, newBlankLine(g.SX, ColorSpec{}))
	}
	g.Lines[y].SetCell(x, c, ext)
}

// Clear fills the rectangle [x, x+nx) x [y, y+ny) with blanks at background
// bg, coalescing into the line's trimmed tail at line end.
func (g *Grid) Clear(x, y, nx, ny int, bg ColorSpec) {
	for row := y; row < y+ny && row < len(g.Lines); row++ {
		line := g.Lines[row]
		if line == nil {
			continue
		}
		end := x + nx
		if end > g.SX {
			end = g.SX
		}
		for col := x; col < end; col++ {
			line.SetCell(col, Blank(bg), ExtCell{})
		}
	}
}

// MoveCells moves nx cells starting at srcX to dstX within line y, handling
// overlap (used by insert/delete character).
func (g *Grid) MoveCells(y, dstX, srcX, nx int) {
	line := g.PeekLine(y)
	if line == nil {
		return
	}
	for len(line.Cells) < srcX+nx {
		line.Cells = append(line.Cells, Blank(ColorSpec{}))
	}
	src := make([]Cell, nx)
	copy(src, line.Cells[srcX:srcX+nx])
	for len(line.Cells) < dstX+nx {
		line.Cells = append(line.Cells, Blank(ColorSpec{}))
	}
	copy(line.Cells[dstX:dstX+nx], src)
	line.trimTail()
}

// MoveLines moves ny lines starting at srcY to dstY, handling overlap
// (used by insert/delete line and by scroll-region shifts).
func (g *Grid) MoveLines(dstY, srcY, ny int) {
	if srcY == dstY || ny <= 0 {
		return
	}
	block := make([]*Line, ny)
	copy(block, g.Lines[srcY:srcY+ny])
	if dstY < srcY {
		copy(g.Lines[dstY+ny:srcY+ny], g.Lines[dstY:srcY])
		copy(g.Lines[dstY:dstY+ny], block)
	} else {
		copy(g.Lines[srcY:dstY], g.Lines[srcY+ny:dstY+ny])
		copy(g.Lines[dstY:dstY+ny], block)
	}
}

// ScrollHistory moves the topmost visible line into history (when the
// cursor sits at the bottom row and a line-feed occurs with no active
// scroll region), growing HSize and collecting old history in batches once
// HLimit is exceeded.
func (g *Grid) ScrollHistory(bg ColorSpec) {
	if g.SY == 0 {
		return
	}
	// The old top visible row, Lines[HSize], becomes part of history simply
	// by incrementing HSize; Lines[HSize+1:] (the rest of the old visible
	// screen) becomes the new Lines[HSize:] window. Appending one blank row
	// restores the visible screen to SY rows.
	g.HSize++
	g.Lines = append(g.Lines, newBlankLine(g.SX, bg))
	if g.HSize > g.HLimit {
		g.CollectHistory()
	}
}

// CollectHistory drops the oldest ~10% of history (or the whole excess, if
// larger) once HSize exceeds HLimit, matching the reference
// implementation's batch-collection policy.
func (g *Grid) CollectHistory() {
	if g.HSize <= g.HLimit {
		return
	}
	drop := g.HLimit / 10
	if excess := g.HSize - g.HLimit; drop < excess {
		drop = excess
	}
	if drop > g.HSize {
		drop = g.HSize
	}
	if drop <= 0 {
		return
	}
	g.Lines = append(g.Lines[:0:0], g.Lines[drop:]...)
	g.HSize -= drop
}

// Resize changes the visible screen height, moving rows between history and
// the visible screen as the reference implementation does (it does not
// reflow width here; see Reflow for width changes).
func (g *Grid) Resize(newSY int) {
	if newSY == g.SY {
		return
	}
	if newSY > g.SY {
		grow := newSY - g.SY
		pulled := 0
		for pulled < grow && g.HSize > 0 {
			g.HSize--
			pulled++
		}
		for i := 0; i < grow-pulled; i++ {
			g.Lines = append(g.Lines, newBlankLine(g.SX, ColorSpec{}))
		}
		g.SY = newSY
		return
	}
	shrink := g.SY - newSY
	g.HSize += shrink
	g.SY = newSY
	if g.HSize > g.HLimit {
		g.CollectHistory()
	}
}
