package screen

import (
	"testing"

	"github.com/tmuxcore/tmuxd/internal/grid"
)

func cellFor(r rune) grid.Cell {
	c := grid.Cell{Width: 1}
	c.SetGrapheme(string(r))
	return c
}

func TestLineFeedScrollsIntoHistoryAtFullScreenRegion(t *testing.T) {
	s := New(5, 3, 50)
	w := NewWriter(s)
	w.CursorMove(0, 2, false)
	w.LineFeed()
	if s.Grid.HSize != 1 {
		t.Fatalf("HSize = %d, want 1", s.Grid.HSize)
	}
	if s.CY != 2 {
		t.Fatalf("CY = %d, want to stay at bottom row 2", s.CY)
	}
}

func TestLineFeedWithinRegionDoesNotScroll(t *testing.T) {
	s := New(5, 3, 50)
	w := NewWriter(s)
	w.CursorMove(0, 0, false)
	w.LineFeed()
	if s.Grid.HSize != 0 {
		t.Fatalf("HSize = %d, want 0", s.Grid.HSize)
	}
	if s.CY != 1 {
		t.Fatalf("CY = %d, want 1", s.CY)
	}
}

func TestScrollRegionScopesLineFeed(t *testing.T) {
	s := New(5, 5, 50)
	w := NewWriter(s)
	w.SetScrollRegion(1, 3)
	w.CursorMove(0, 3, false)
	w.LineFeed()
	if s.Grid.HSize != 0 {
		t.Fatalf("scrolling inside a partial region must not feed history, HSize=%d", s.Grid.HSize)
	}
	if s.CY != 3 {
		t.Fatalf("CY = %d, want to stay at region bottom 3", s.CY)
	}
}

func TestInsertDeleteCharacter(t *testing.T) {
	s := New(5, 1, 10)
	w := NewWriter(s)
	for i, r := range "abcde" {
		w.CursorMove(i, 0, false)
		w.PutCell(cellFor(r), grid.ExtCell{})
	}
	w.CursorMove(1, 0, false)
	w.InsertCharacter(2)
	line := s.Grid.PeekLine(s.AbsY(0))
	if got := line.CellAt(0).String(); got != "a" {
		t.Fatalf("after insert col0 = %q, want a", got)
	}
	if got := line.CellAt(1).String(); got != "" {
		t.Fatalf("after insert col1 = %q, want blank", got)
	}
	if got := line.CellAt(3).String(); got != "b" {
		t.Fatalf("after insert col3 = %q, want b (shifted right)", got)
	}

	w.CursorMove(1, 0, false)
	w.DeleteCharacter(2)
	if got := line.CellAt(1).String(); got != "b" {
		t.Fatalf("after delete col1 = %q, want b (shifted back)", got)
	}
}

func TestInsertDeleteLine(t *testing.T) {
	s := New(3, 4, 10)
	w := NewWriter(s)
	for y, r := range []rune("abcd") {
		w.CursorMove(0, y, false)
		w.PutCell(cellFor(r), grid.ExtCell{})
	}
	w.CursorMove(0, 1, false)
	w.InsertLine(1)
	if got := s.Grid.GetCell(0, s.AbsY(1)).String(); got != " " && got != "" {
		t.Fatalf("row 1 should be blank after insert, got %q", got)
	}
	if got := s.Grid.GetCell(0, s.AbsY(2)).String(); got != "b" {
		t.Fatalf("row 2 = %q, want b (shifted down)", got)
	}

	w.CursorMove(0, 1, false)
	w.DeleteLine(1)
	if got := s.Grid.GetCell(0, s.AbsY(1)).String(); got != "b" {
		t.Fatalf("row 1 after delete = %q, want b", got)
	}
}

func TestClearScreen(t *testing.T) {
	s := New(3, 2, 10)
	w := NewWriter(s)
	w.PutCell(cellFor('x'), grid.ExtCell{})
	w.ClearScreen()
	if got := s.Grid.GetCell(0, s.AbsY(0)).String(); got != "" {
		t.Fatalf("expected blank after ClearScreen, got %q", got)
	}
}

func TestAltScreenRoundTrip(t *testing.T) {
	s := New(3, 2, 10)
	w := NewWriter(s)
	w.PutCell(cellFor('p'), grid.ExtCell{})
	primary := s.Grid
	s.EnterAlt()
	if s.Grid == primary {
		t.Fatalf("EnterAlt did not swap grid")
	}
	w.PutCell(cellFor('a'), grid.ExtCell{})
	s.ExitAlt()
	if s.Grid != primary {
		t.Fatalf("ExitAlt did not restore primary grid")
	}
	if got := s.Grid.GetCell(0, s.AbsY(0)).String(); got != "p" {
		t.Fatalf("primary content lost across alt-screen round trip: %q", got)
	}
}
