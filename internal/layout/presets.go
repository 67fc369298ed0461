package layout

// Preset names a built-in arrangement for a given set of panes.
type Preset string

const (
	PresetEvenHorizontal Preset = "even-horizontal"
	PresetEvenVertical   Preset = "even-vertical"
	PresetMainHorizontal Preset = "main-horizontal"
	PresetMainVertical   Preset = "main-vertical"
	PresetTiled          Preset = "tiled"
)

// BuildPreset arranges paneIDs into sx by sy cells according to name. The
// first pane id is used as the "main" pane for the main-horizontal and
// main-vertical presets.
func BuildPreset(name Preset, paneIDs []string, sx, sy int) *Cell {
	switch len(paneIDs) {
	case 0:
		return nil
	case 1:
		return NewSingle(paneIDs[0], sx, sy)
	}

	switch name {
	case PresetEvenHorizontal:
		return evenSplit(paneIDs, sx, sy, true)
	case PresetEvenVertical:
		return evenSplit(paneIDs, sx, sy, false)
	case PresetMainHorizontal:
		return mainSplit(paneIDs, sx, sy, false)
	case PresetMainVertical:
		return mainSplit(paneIDs, sx, sy, true)
	case PresetTiled:
		return tiled(paneIDs, sx, sy)
	default:
		return evenSplit(paneIDs, sx, sy, true)
	}
}

// evenSplit lays every pane out in one row (horizontal=true) or one column,
// each getting an equal share of the axis.
func evenSplit(paneIDs []string, sx, sy int, horizontal bool) *Cell {
	kind := kindForDirection(horizontal)
	root := &Cell{Kind: kind, SX: sx, SY: sy}
	root.Children = make([]*Cell, len(paneIDs))
	for i, id := range paneIDs {
		root.Children[i] = &Cell{Kind: KindPane, PaneID: id, Parent: root}
	}
	retile(root, horizontal)
	return root
}

// mainSplit gives paneIDs[0] a large primary area (left column for
// main-vertical, top row for main-horizontal) and evenly splits the rest
// along the opposite axis in the remaining space.
func mainSplit(paneIDs []string, sx, sy int, vertical bool) *Cell {
	main := paneIDs[0]
	rest := paneIDs[1:]

	if vertical {
		mainW := sx * 2 / 3
		if mainW < PaneMinimum {
			mainW = sx - PaneMinimum
		}
		root := &Cell{Kind: KindLeftRight, SX: sx, SY: sy}
		mainCell := &Cell{Kind: KindPane, PaneID: main, X: 0, Y: 0, SX: mainW, SY: sy, Parent: root}
		restRoot := evenSplit(rest, sx-mainW, sy, false)
		restRoot.X, restRoot.Y = mainW, 0
		retile(restRoot, false)
		restRoot.Parent = root
		root.Children = []*Cell{mainCell, restRoot}
		return root
	}
	mainH := sy * 2 / 3
	if mainH < PaneMinimum {
		mainH = sy - PaneMinimum
	}
	root := &Cell{Kind: KindTopBottom, SX: sx, SY: sy}
	mainCell := &Cell{Kind: KindPane, PaneID: main, X: 0, Y: 0, SX: sx, SY: mainH, Parent: root}
	restRoot := evenSplit(rest, sx, sy-mainH, true)
	restRoot.X, restRoot.Y = 0, mainH
	retile(restRoot, true)
	restRoot.Parent = root
	root.Children = []*Cell{mainCell, restRoot}
	return root
}

// tiled arranges panes in a roughly square grid of rows and columns, filling
// row-major, the last row taking whatever panes remain.
func tiled(paneIDs []string, sx, sy int) *Cell {
	n := len(paneIDs)
	cols := 1
	for cols*cols < n {
		cols++
	}
	rows := (n + cols - 1) / cols

	root := &Cell{Kind: KindTopBottom, SX: sx, SY: sy}
	rowH := sy / rows
	idx := 0
	for r := 0; r < rows; r++ {
		remaining := n - idx
		thisRowCols := cols
		if remaining < cols {
			thisRowCols = remaining
		}
		h := rowH
		if r == rows-1 {
			h = sy - rowH*(rows-1)
		}
		rowIDs := paneIDs[idx : idx+thisRowCols]
		rowCell := evenSplit(rowIDs, sx, h, true)
		rowCell.Y = r * rowH
		retile(rowCell, true)
		rowCell.Parent = root
		root.Children = append(root.Children, rowCell)
		idx += thisRowCols
	}
	return root
}
