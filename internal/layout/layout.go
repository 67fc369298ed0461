// Package layout implements the pane layout tree (§4.E): an n-ary tree of
// left-right, top-bottom and pane cells with absolute pixel/cell sizes,
// generalizing the teacher's binary ratio-based tree.
package layout

import "fmt"

// Kind identifies a cell's role in the layout tree.
type Kind uint8

const (
	KindPane Kind = iota
	KindLeftRight
	KindTopBottom
)

// PaneMinimum is the smallest width or height a pane cell may shrink to.
const PaneMinimum = 1

// Cell is one node of the layout tree. Leaf cells (Kind == KindPane)
// reference a pane id; interior cells hold an ordered list of children
// whose sizes sum (along the split axis) to the parent's size.
type Cell struct {
	Kind Kind
	X, Y int
	SX, SY int

	PaneID   string // valid when Kind == KindPane
	Children []*Cell
	Parent   *Cell
}

// NewSingle creates a one-pane layout covering the whole window.
func NewSingle(paneID string, sx, sy int) *Cell {
	return &Cell{Kind: KindPane, SX: sx, SY: sy, PaneID: paneID}
}

// FindPane locates the leaf cell holding paneID.
func FindPane(root *Cell, paneID string) *Cell {
	if root == nil {
		return nil
	}
	if root.Kind == KindPane {
		if root.PaneID == paneID {
			return root
		}
		return nil
	}
	for _, c := range root.Children {
		if f := FindPane(c, paneID); f != nil {
			return f
		}
	}
	return nil
}

// Panes returns every leaf cell's pane id in layout order (top/left first).
func Panes(root *Cell) []string {
	if root == nil {
		return nil
	}
	if root.Kind == KindPane {
		return []string{root.PaneID}
	}
	var out []string
	for _, c := range root.Children {
		out = append(out, Panes(c)...)
	}
	return out
}

func kindForDirection(horizontal bool) Kind {
	if horizontal {
		return KindLeftRight
	}
	return KindTopBottom
}

// Split divides the cell holding targetPaneID, giving the new pane newSize
// cells along the split axis (horizontal splits divide width, vertical
// splits divide height) and the remainder to the existing pane. If the
// target's parent already splits along the same axis, the new cell is
// inserted as an additional sibling (n-ary) rather than nesting a new
// two-child node, matching tmux's actual layout shape for repeated splits
// in the same direction.
func Split(root *Cell, targetPaneID string, horizontal bool, before bool, newPaneID string, newSize int) (*Cell, error) {
	target := FindPane(root, targetPaneID)
	if target == nil {
		return root, fmt.Errorf("layout: pane %s not found", targetPaneID)
	}
	kind := kindForDirection(horizontal)

	axisSize := target.SX
	if !horizontal {
		axisSize = target.SY
	}
	if newSize <= 0 || newSize >= axisSize {
		newSize = axisSize / 2
	}
	if newSize < PaneMinimum {
		newSize = PaneMinimum
	}
	if axisSize-newSize < PaneMinimum {
		return root, fmt.Errorf("layout: pane %s too small to split", targetPaneID)
	}

	if target.Parent != nil && target.Parent.Kind == kind {
		insertSibling(target.Parent, target, newPaneID, newSize, before, horizontal)
		return root, nil
	}

	newLeaf := &Cell{Kind: KindPane, PaneID: newPaneID}
	oldLeaf := &Cell{Kind: KindPane, PaneID: target.PaneID}
	split := &Cell{Kind: kind, X: target.X, Y: target.Y, SX: target.SX, SY: target.SY, Parent: target.Parent}

	first, second := oldLeaf, newLeaf
	if before {
		first, second = newLeaf, oldLeaf
	}
	split.Children = []*Cell{first, second}
	first.Parent, second.Parent = split, split

	if horizontal {
		firstW := target.SX - newSize
		if before {
			firstW = newSize
		}
		layoutPair(split, first, second, horizontal, firstW)
	} else {
		firstH := target.SY - newSize
		if before {
			firstH = newSize
		}
		layoutPair(split, first, second, horizontal, firstH)
	}

	*target = *split
	for _, c := range target.Children {
		c.Parent = target
	}
	return root, nil
}

func layoutPair(parent, first, second *Cell, horizontal bool, firstExtent int) {
	if horizontal {
		first.X, first.Y, first.SY = parent.X, parent.Y, parent.SY
		first.SX = firstExtent
		second.X, second.Y, second.SY = parent.X+firstExtent, parent.Y, parent.SY
		second.SX = parent.SX - firstExtent
	} else {
		first.X, first.Y, first.SX = parent.X, parent.Y, parent.SX
		first.SY = firstExtent
		second.X, second.Y, second.SX = parent.X, parent.Y+firstExtent, parent.SX
		second.SY = parent.SY - firstExtent
	}
}

// insertSibling adds a new pane cell next to an existing sibling within an
// already-split parent, shrinking siblings evenly to make room.
func insertSibling(parent, next *Cell, newPaneID string, newSize int, before, horizontal bool) {
	newCell := &Cell{Kind: KindPane, PaneID: newPaneID, Parent: parent}
	idx := childIndex(parent, next)
	at := idx + 1
	if before {
		at = idx
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[at+1:], parent.Children[at:])
	parent.Children[at] = newCell
	retile(parent, horizontal)
	_ = newSize // even retiling supersedes the requested split size for n-ary inserts
}

func childIndex(parent, child *Cell) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// retile re-lays out parent's children evenly along its split axis,
// preserving their accumulated order.
func retile(parent *Cell, horizontal bool) {
	n := len(parent.Children)
	if n == 0 {
		return
	}
	if horizontal {
		base := parent.SX / n
		x := parent.X
		for i, c := range parent.Children {
			w := base
			if i == n-1 {
				w = parent.SX - (base * (n - 1))
			}
			c.X, c.Y, c.SY, c.SX = x, parent.Y, parent.SY, w
			x += w
		}
	} else {
		base := parent.SY / n
		y := parent.Y
		for i, c := range parent.Children {
			h := base
			if i == n-1 {
				h = parent.SY - (base * (n - 1))
			}
			c.X, c.Y, c.SX, c.SY = parent.X, y, parent.SX, h
			y += h
		}
	}
}

// Close removes paneID's cell, merging its parent if only one sibling
// remains (collapsing the now-redundant interior node).
func Close(root *Cell, paneID string) (*Cell, error) {
	target := FindPane(root, paneID)
	if target == nil {
		return root, fmt.Errorf("layout: pane %s not found", paneID)
	}
	if target == root {
		return nil, nil
	}
	parent := target.Parent
	idx := childIndex(parent, target)
	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	retile(parent, parent.Kind == KindLeftRight)

	if len(parent.Children) == 1 {
		only := parent.Children[0]
		only.X, only.Y, only.SX, only.SY = parent.X, parent.Y, parent.SX, parent.SY
		gp := parent.Parent
		*parent = *only
		parent.Parent = gp
		for _, c := range parent.Children {
			c.Parent = parent
		}
	}
	return root, nil
}
