package vt

import (
	"testing"

	"github.com/tmuxcore/tmuxd/internal/grid"
	"github.com/tmuxcore/tmuxd/internal/screen"
)

func newParser(sx, sy int) (*screen.Screen, *screen.Writer, *Parser) {
	s := screen.New(sx, sy, 100)
	w := screen.NewWriter(s)
	p := New(s, w)
	return s, w, p
}

func TestPlainTextAdvancesCursor(t *testing.T) {
	s, _, p := newParser(10, 3)
	p.Feed([]byte("hi"))
	if s.CX != 2 {
		t.Fatalf("CX = %d, want 2", s.CX)
	}
	if got := s.Grid.GetCell(0, s.AbsY(0)).String(); got != "h" {
		t.Fatalf("cell 0 = %q, want h", got)
	}
}

func TestCSICursorPosition(t *testing.T) {
	s, _, p := newParser(10, 5)
	p.Feed([]byte("\x1b[3;4H"))
	if s.CX != 3 || s.CY != 2 {
		t.Fatalf("cursor = (%d,%d), want (3,2)", s.CX, s.CY)
	}
}

func TestSGRColorApplied(t *testing.T) {
	s, _, p := newParser(10, 3)
	p.Feed([]byte("\x1b[31mX\x1b[0mY"))
	red := s.Grid.GetCell(0, s.AbsY(0))
	if red.Fg.Mode != grid.ColorIndexed || red.Fg.Index != 1 {
		t.Fatalf("fg = %+v, want indexed red", red.Fg)
	}
	plain := s.Grid.GetCell(1, s.AbsY(0))
	if plain.Fg.Mode != grid.ColorDefault {
		t.Fatalf("SGR 0 did not reset fg: %+v", plain.Fg)
	}
}

func TestSGRExtendedRGB(t *testing.T) {
	s, _, p := newParser(10, 3)
	p.Feed([]byte("\x1b[38;2;10;20;30mZ"))
	c := s.Grid.GetCell(0, s.AbsY(0))
	if c.Fg.Mode != grid.ColorRGB || c.Fg.R != 10 || c.Fg.G != 20 || c.Fg.B != 30 {
		t.Fatalf("fg = %+v, want rgb(10,20,30)", c.Fg)
	}
}

func TestLineFeedScrollsHistory(t *testing.T) {
	s, _, p := newParser(5, 2)
	p.Feed([]byte("a\r\nb\r\nc"))
	if s.Grid.HSize != 1 {
		t.Fatalf("HSize = %d, want 1", s.Grid.HSize)
	}
}

func TestOSCHyperlink(t *testing.T) {
	s, _, p := newParser(10, 2)
	p.Feed([]byte("\x1b]8;;http://example.com\x07L\x1b]8;;\x07M"))
	line := s.Grid.PeekLine(s.AbsY(0))
	linked := line.CellAt(0)
	if !linked.IsExtended {
		t.Fatalf("hyperlinked cell should be extended")
	}
	ext := line.ExtAt(0)
	if ext.Hyperlink == 0 {
		t.Fatalf("expected nonzero hyperlink id")
	}
	if s.Hyperlinks[ext.Hyperlink] != "http://example.com" {
		t.Fatalf("hyperlink table = %q", s.Hyperlinks[ext.Hyperlink])
	}
}

func TestOSC52Clipboard(t *testing.T) {
	_, _, p := newParser(10, 2)
	var gotSel string
	var gotData []byte
	p.OnOSC52 = func(sel string, data []byte) {
		gotSel, gotData = sel, data
	}
	p.Feed([]byte("\x1b]52;c;aGVsbG8=\x07"))
	if gotSel != "c" || string(gotData) != "hello" {
		t.Fatalf("sel=%q data=%q", gotSel, gotData)
	}
}

func TestAltScreenModeToggle(t *testing.T) {
	s, _, p := newParser(10, 2)
	p.Feed([]byte("\x1b[?1049h"))
	if !s.ModeHas(screen.ModeAltScreen) {
		t.Fatalf("expected alt screen mode set")
	}
	p.Feed([]byte("\x1b[?1049l"))
	if s.ModeHas(screen.ModeAltScreen) {
		t.Fatalf("expected alt screen mode cleared")
	}
}

func TestPartialSequenceAcrossFeeds(t *testing.T) {
	s, _, p := newParser(10, 5)
	p.Feed([]byte("\x1b[3"))
	p.Feed([]byte(";4H"))
	if s.CX != 3 || s.CY != 2 {
		t.Fatalf("cursor = (%d,%d), want (3,2) after split feed", s.CX, s.CY)
	}
}

func TestMalformedSequenceReturnsToGround(t *testing.T) {
	s, _, p := newParser(10, 5)
	p.Feed([]byte("\x1b[999999999999999999999999999999z"))
	p.Feed([]byte("ok"))
	if got := s.Grid.GetCell(0, s.AbsY(0)).String(); got != "o" {
		t.Fatalf("parser did not recover to ground: %q", got)
	}
}
