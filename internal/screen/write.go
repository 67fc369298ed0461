package screen

import "github.com/tmuxcore/tmuxd/internal/grid"

// Writer is the staged, batched mutation API over a Screen. Start/Stop
// bracket a write so that runs of PutCell at consecutive positions coalesce
// into one dirty-range notification instead of one per cell.
type Writer struct {
	s *Screen

	active    bool
	dirtyFrom int
	dirtyTo   int
	OnDirty   func(y0, y1 int) // invoked on Stop with the inclusive dirty row range
}

func NewWriter(s *Screen) *Writer {
	return &Writer{s: s}
}

// Start begins a batch of writes.
func (w *Writer) Start() {
	w.active = true
	w.dirtyFrom, w.dirtyTo = -1, -1
}

// Stop ends the batch, firing OnDirty once for the whole accumulated range.
func (w *Writer) Stop() {
	w.active = false
	if w.OnDirty != nil && w.dirtyFrom >= 0 {
		w.OnDirty(w.dirtyFrom, w.dirtyTo)
	}
}

func (w *Writer) markDirty(y int) {
	if !w.active {
		if w.OnDirty != nil {
			w.OnDirty(y, y)
		}
		return
	}
	if w.dirtyFrom < 0 || y < w.dirtyFrom {
		w.dirtyFrom = y
	}
	if y > w.dirtyTo {
		w.dirtyTo = y
	}
}

// CursorMove clamps (x, y) to the screen; when origin is true (DEC origin
// mode) coordinates are offset by the scroll region.
func (w *Writer) CursorMove(x, y int, origin bool) {
	s := w.s
	if origin {
		x += s.RLeft
		y += s.RUpper
	}
	if x < 0 {
		x = 0
	}
	if x > s.SX {
		x = s.SX
	}
	if y < 0 {
		y = 0
	}
	if y >= s.SY {
		y = s.SY - 1
	}
	s.CX, s.CY = x, y
	s.wrapped = false
}

// PutCell writes one cell at the cursor and advances it, wrapping to the
// next line when MODE_WRAP is set and the cursor is past the last column.
func (w *Writer) PutCell(c grid.Cell, ext grid.ExtCell) {
	s := w.s
	if s.wrapped && s.ModeHas(ModeWrap) {
		s.Grid.PeekLine(s.AbsY(s.CY)).Flags |= grid.LineWrapped
		w.LineFeed()
		s.CX = s.RLeft
		s.wrapped = false
	}
	if s.CX > s.RRight {
		if !s.ModeHas(ModeWrap) {
			s.CX = s.RRight
		}
	}
	width := int(c.Width)
	if width != 2 {
		width = 1
	}
	s.Grid.SetCell(s.CX, s.AbsY(s.CY), c, ext)
	w.markDirty(s.CY)
	s.CX += width
	if s.CX > s.RRight {
		s.wrapped = true
		s.CX = s.RRight
	}
}

// LineFeed moves the cursor down one row, scrolling the region (and, if the
// region spans the full screen, pushing into history) when at RLower.
func (w *Writer) LineFeed() {
	s := w.s
	if s.CY == s.RLower {
		w.scrollRegionUp(1)
		w.markDirty(s.RUpper)
		w.markDirty(s.RLower)
		return
	}
	if s.CY < s.SY-1 {
		s.CY++
	}
}

// ReverseIndex moves the cursor up one row, scrolling the region down when
// at RUpper.
func (w *Writer) ReverseIndex() {
	s := w.s
	if s.CY == s.RUpper {
		w.scrollRegionDown(1)
		w.markDirty(s.RUpper)
		w.markDirty(s.RLower)
		return
	}
	if s.CY > 0 {
		s.CY--
	}
}

func (w *Writer) regionIsFullScreen() bool {
	s := w.s
	return s.RUpper == 0 && s.RLower == s.SY-1 && s.RLeft == 0 && s.RRight == s.SX-1
}

// ScrollUp scrolls the scroll region up by n lines, feeding into history
// only when the region spans the full screen.
func (w *Writer) ScrollUp(n int) {
	s := w.s
	for i := 0; i < n; i++ {
		w.scrollRegionUp(1)
	}
	w.markDirty(s.RUpper)
	w.markDirty(s.RLower)
}

func (w *Writer) scrollRegionUp(n int) {
	s := w.s
	if w.regionIsFullScreen() {
		for i := 0; i < n; i++ {
			s.Grid.ScrollHistory(grid.ColorSpec{})
		}
		return
	}
	top := s.AbsY(s.RUpper)
	height := s.RLower - s.RUpper + 1
	if n >= height {
		s.Grid.Clear(s.RLeft, top, s.RRight-s.RLeft+1, height, grid.ColorSpec{})
		return
	}
	s.Grid.MoveLines(top, top+n, height-n)
	s.Grid.Clear(s.RLeft, top+height-n, s.RRight-s.RLeft+1, n, grid.ColorSpec{})
}

// ScrollDown scrolls the scroll region down by n lines.
func (w *Writer) ScrollDown(n int) {
	s := w.s
	for i := 0; i < n; i++ {
		w.scrollRegionDown(1)
	}
	w.markDirty(s.RUpper)
	w.markDirty(s.RLower)
}

func (w *Writer) scrollRegionDown(n int) {
	s := w.s
	top := s.AbsY(s.RUpper)
	height := s.RLower - s.RUpper + 1
	if n >= height {
		s.Grid.Clear(s.RLeft, top, s.RRight-s.RLeft+1, height, grid.ColorSpec{})
		return
	}
	s.Grid.MoveLines(top+n, top, height-n)
	s.Grid.Clear(s.RLeft, top, s.RRight-s.RLeft+1, n, grid.ColorSpec{})
}

// ClearLine clears the whole cursor row.
func (w *Writer) ClearLine() {
	s := w.s
	s.Grid.Clear(0, s.AbsY(s.CY), s.SX, 1, grid.ColorSpec{})
	w.markDirty(s.CY)
}

// ClearToEndOfLine clears from the cursor to the end of the row.
func (w *Writer) ClearToEndOfLine() {
	s := w.s
	s.Grid.Clear(s.CX, s.AbsY(s.CY), s.SX-s.CX, 1, grid.ColorSpec{})
	w.markDirty(s.CY)
}

// ClearToStartOfLine clears from the start of the row to the cursor.
func (w *Writer) ClearToStartOfLine() {
	s := w.s
	s.Grid.Clear(0, s.AbsY(s.CY), s.CX+1, 1, grid.ColorSpec{})
	w.markDirty(s.CY)
}

// ClearScreen clears the whole visible screen.
func (w *Writer) ClearScreen() {
	s := w.s
	s.Grid.Clear(0, s.AbsY(0), s.SX, s.SY, grid.ColorSpec{})
	w.markDirty(0)
	w.markDirty(s.SY - 1)
}

// ClearToEndOfScreen clears from the cursor to the end of the screen.
func (w *Writer) ClearToEndOfScreen() {
	w.ClearToEndOfLine()
	s := w.s
	if s.CY+1 < s.SY {
		s.Grid.Clear(0, s.AbsY(s.CY+1), s.SX, s.SY-s.CY-1, grid.ColorSpec{})
	}
	w.markDirty(s.CY)
	w.markDirty(s.SY - 1)
}

// ClearToStartOfScreen clears from the start of the screen to the cursor.
func (w *Writer) ClearToStartOfScreen() {
	s := w.s
	if s.CY > 0 {
		s.Grid.Clear(0, s.AbsY(0), s.SX, s.CY, grid.ColorSpec{})
	}
	w.ClearToStartOfLine()
	w.markDirty(0)
	w.markDirty(s.CY)
}

// InsertCharacter inserts n blank cells at the cursor, shifting the rest of
// the row right within the scroll region's horizontal bounds.
func (w *Writer) InsertCharacter(n int) {
	s := w.s
	y := s.AbsY(s.CY)
	width := s.RRight - s.CX + 1
	if n > width {
		n = width
	}
	if n <= 0 {
		return
	}
	s.Grid.MoveCells(y, s.CX+n, s.CX, width-n)
	s.Grid.Clear(s.CX, y, n, 1, grid.ColorSpec{})
	w.markDirty(s.CY)
}

// DeleteCharacter deletes n cells at the cursor, shifting the rest of the
// row left and blanking the vacated tail.
func (w *Writer) DeleteCharacter(n int) {
	s := w.s
	y := s.AbsY(s.CY)
	width := s.RRight - s.CX + 1
	if n > width {
		n = width
	}
	if n <= 0 {
		return
	}
	s.Grid.MoveCells(y, s.CX, s.CX+n, width-n)
	s.Grid.Clear(s.RRight-n+1, y, n, 1, grid.ColorSpec{})
	w.markDirty(s.CY)
}

// InsertLine inserts n blank lines at the cursor row, shifting lines below
// it down within the scroll region.
func (w *Writer) InsertLine(n int) {
	s := w.s
	if s.CY < s.RUpper || s.CY > s.RLower {
		return
	}
	height := s.RLower - s.CY + 1
	if n > height {
		n = height
	}
	top := s.AbsY(s.CY)
	if n < height {
		s.Grid.MoveLines(top+n, top, height-n)
	}
	s.Grid.Clear(s.RLeft, top, s.RRight-s.RLeft+1, n, grid.ColorSpec{})
	w.markDirty(s.CY)
	w.markDirty(s.RLower)
}

// DeleteLine deletes n lines at the cursor row, shifting lines below it up
// within the scroll region.
func (w *Writer) DeleteLine(n int) {
	s := w.s
	if s.CY < s.RUpper || s.CY > s.RLower {
		return
	}
	height := s.RLower - s.CY + 1
	if n > height {
		n = height
	}
	top := s.AbsY(s.CY)
	if n < height {
		s.Grid.MoveLines(top, top+n, height-n)
	}
	s.Grid.Clear(s.RLeft, top+height-n, s.RRight-s.RLeft+1, n, grid.ColorSpec{})
	w.markDirty(s.CY)
	w.markDirty(s.RLower)
}

// SetScrollRegion sets the vertical scroll region (rupper..rlower).
func (w *Writer) SetScrollRegion(upper, lower int) {
	s := w.s
	if upper < 0 {
		upper = 0
	}
	if lower >= s.SY {
		lower = s.SY - 1
	}
	if upper >= lower {
		return
	}
	s.RUpper, s.RLower = upper, lower
}

// SetScrollRegionHorizontal sets the horizontal scroll-region bounds
// (DECSLRM), active only when left/right margin mode is enabled.
func (w *Writer) SetScrollRegionHorizontal(left, right int) {
	s := w.s
	if left < 0 {
		left = 0
	}
	if right >= s.SX {
		right = s.SX - 1
	}
	if left >= right {
		return
	}
	s.RLeft, s.RRight = left, right
}
