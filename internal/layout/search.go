package layout

// Border describes a draggable edge found by SearchByBorder: the two
// adjacent cells it falls between and which axis dragging it resizes.
// Horizontal matches the horizontal parameter of Resize/ResizeTo: true
// means the border runs vertically between a left-right split's children
// (dragging it changes their width).
type Border struct {
	Horizontal bool
	Before     *Cell
	After      *Cell
}

// SearchByBorder walks the tree looking for an interior split whose
// separator line passes through (x, y), for translating a mouse-drag start
// point into the pair of cells a resize should apply to.
func SearchByBorder(root *Cell, x, y int) (Border, bool) {
	if root == nil || root.Kind == KindPane {
		return Border{}, false
	}
	for i := 0; i < len(root.Children)-1; i++ {
		before, after := root.Children[i], root.Children[i+1]
		if root.Kind == KindLeftRight {
			borderX := before.X + before.SX
			if x == borderX && y >= before.Y && y < before.Y+before.SY {
				return Border{Horizontal: true, Before: before, After: after}, true
			}
		} else {
			borderY := before.Y + before.SY
			if y == borderY && x >= before.X && x < before.X+before.SX {
				return Border{Horizontal: false, Before: before, After: after}, true
			}
		}
	}
	for _, c := range root.Children {
		if b, ok := SearchByBorder(c, x, y); ok {
			return b, true
		}
	}
	return Border{}, false
}
