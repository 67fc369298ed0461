package layout

import "fmt"

// Resize grows or shrinks paneID's cell by delta cells along the given axis,
// taking the space from (or giving it to) the adjacent sibling. A negative
// delta shrinks the pane. The resize is rejected if either side of the
// adjustment would drop below PaneMinimum.
func Resize(root *Cell, paneID string, horizontal bool, delta int) error {
	target := FindPane(root, paneID)
	if target == nil {
		return fmt.Errorf("layout: pane %s not found", paneID)
	}
	parent := target.Parent
	wantKind := kindForDirection(horizontal)
	for parent != nil && parent.Kind != wantKind {
		parent = parent.Parent
	}
	if parent == nil {
		return fmt.Errorf("layout: pane %s has no %v neighbor", paneID, wantKind)
	}

	// walk up from target to find the direct child of parent containing it
	child := target
	for child.Parent != parent {
		child = child.Parent
	}
	idx := childIndex(parent, child)
	if idx < 0 {
		return fmt.Errorf("layout: pane %s not under its resize parent", paneID)
	}
	neighborIdx := idx + 1
	if neighborIdx >= len(parent.Children) {
		neighborIdx = idx - 1
	}
	if neighborIdx < 0 {
		return fmt.Errorf("layout: pane %s has no neighbor to resize against", paneID)
	}
	neighbor := parent.Children[neighborIdx]

	extent := func(c *Cell) int {
		if horizontal {
			return c.SX
		}
		return c.SY
	}
	if extent(child)+delta < PaneMinimum || extent(neighbor)-delta < PaneMinimum {
		return fmt.Errorf("layout: resize of pane %s would violate PANE_MINIMUM", paneID)
	}
	if horizontal {
		child.SX += delta
		neighbor.SX -= delta
	} else {
		child.SY += delta
		neighbor.SY -= delta
	}
	resequence(parent, horizontal)
	return nil
}

// ResizeTo sets paneID's extent along the given axis to an absolute size.
func ResizeTo(root *Cell, paneID string, horizontal bool, size int) error {
	target := FindPane(root, paneID)
	if target == nil {
		return fmt.Errorf("layout: pane %s not found", paneID)
	}
	current := target.SX
	if !horizontal {
		current = target.SY
	}
	return Resize(root, paneID, horizontal, size-current)
}

// resequence recomputes every child's X/Y origin from its stored extents in
// order, after a resize changed one or more extents in place.
func resequence(parent *Cell, horizontal bool) {
	if horizontal {
		x := parent.X
		for _, c := range parent.Children {
			c.X, c.Y, c.SY = x, parent.Y, parent.SY
			x += c.SX
		}
	} else {
		y := parent.Y
		for _, c := range parent.Children {
			c.X, c.Y, c.SX = parent.X, y, parent.SX
			y += c.SY
		}
	}
}

// zoomState holds the pre-zoom tree so Unzoom can restore it.
type zoomState struct {
	saved *Cell
}

// Zoom replaces root with a single full-size cell for paneID, stashing the
// prior tree in the returned state for Unzoom to restore. The zoomed pane
// keeps its id and geometry context but temporarily fills the whole window.
func Zoom(root *Cell, paneID string) (*Cell, *zoomState, error) {
	target := FindPane(root, paneID)
	if target == nil {
		return root, nil, fmt.Errorf("layout: pane %s not found", paneID)
	}
	st := &zoomState{saved: root}
	zoomed := &Cell{Kind: KindPane, PaneID: paneID, X: root.X, Y: root.Y, SX: root.SX, SY: root.SY}
	return zoomed, st, nil
}

// Unzoom restores the tree captured by a prior Zoom.
func Unzoom(st *zoomState) *Cell {
	if st == nil {
		return nil
	}
	return st.saved
}
