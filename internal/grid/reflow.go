package grid

// logicalLine is a maximal run of physical lines joined by LineWrapped: the
// unit reflow operates on.
type logicalLine struct {
	cells []Cell
	exts  []ExtCell // exts[i] valid only when cells[i].IsExtended
}

func collectLogical(lines []*Line) []logicalLine {
	var out []logicalLine
	var cur logicalLine
	inRun := false
	for _, l := range lines {
		if l == nil {
			l = &Line{}
		}
		for i, c := range l.Cells {
			ext := ExtCell{}
			if c.IsExtended && int(c.ExtIndex) < len(l.Extended) {
				ext = l.Extended[c.ExtIndex]
			}
			c.IsExtended = false
			c.ExtIndex = 0
			cur.cells = append(cur.cells, c)
			cur.exts = append(cur.exts, ext)
			_ = i
		}
		if l.Flags&LineWrapped != 0 {
			inRun = true
			continue
		}
		out = append(out, cur)
		cur = logicalLine{}
		inRun = false
	}
	if inRun && (len(cur.cells) > 0) {
		out = append(out, cur)
	}
	return out
}

// rewrap splits a logical line's cells into physical lines of at most width
// cells, never splitting a width-2 cell across a line boundary.
func rewrap(ll logicalLine, width int) []*Line {
	if width <= 0 {
		width = 1
	}
	if len(ll.cells) == 0 {
		return []*Line{{}}
	}
	var out []*Line
	cur := &Line{}
	col := 0
	var row []Cell // cells placed on cur so far, by column
	for i, c := range ll.cells {
		w := int(c.Width)
		if w != 1 && w != 2 {
			w = 1
		}
		if col+w > width {
			cur.Flags |= LineWrapped
			out = append(out, cur)
			cur = &Line{}
			col = 0
			row = row[:0]
		}
		for len(row) < col {
			row = append(row, Blank(ColorSpec{}))
		}
		row = append(row, c)
		cur.SetCell(col, c, ll.exts[i])
		// SetCell trims trailing blanks; put them back so every cell of the
		// logical line survives the rewrap.
		for len(cur.Cells) < len(row) {
			cur.Cells = append(cur.Cells, row[len(cur.Cells)])
		}
		col += w
	}
	out = append(out, cur)
	return out
}

// Reflow rebuilds the grid at a new width, preserving logical-line content
// and wrap semantics. It is reversible: reflowing back to the original
// width reproduces the original logical lines (spec §8 property 3).
func (g *Grid) Reflow(newSX int) {
	if newSX == g.SX || newSX <= 0 {
		return
	}
	logicals := collectLogical(g.Lines)
	var rebuilt []*Line
	for _, ll := range logicals {
		rebuilt = append(rebuilt, rewrap(ll, newSX)...)
	}
	// Re-derive HSize/SY split: keep the same number of visible rows (SY),
	// pushing everything above that into history, newest-first from the
	// tail as before.
	if len(rebuilt) < g.SY {
		for len(rebuilt) < g.SY {
			rebuilt = append([]*Line{{}}, rebuilt...)
		}
	}
	g.Lines = rebuilt
	g.HSize = len(rebuilt) - g.SY
	g.SX = newSX
	if g.HSize > g.HLimit {
		g.CollectHistory()
	}
}
