package tty

import (
	"strings"
	"testing"

	"github.com/tmuxcore/tmuxd/internal/screen"
	"github.com/tmuxcore/tmuxd/internal/vt"
)

func newTestScreen(sx, sy int) (*screen.Screen, *vt.Parser) {
	s := screen.New(sx, sy, 100)
	return s, vt.New(s, screen.NewWriter(s))
}

func TestRenderWritesChangedCellsOnce(t *testing.T) {
	s, p := newTestScreen(10, 3)
	w := NewWriter(&Capabilities{})

	p.Feed([]byte("hello"))
	out := w.Render(s)
	if len(out) == 0 {
		t.Fatalf("Render() on first frame produced no output")
	}
	if !strings.Contains(string(out), "hello") {
		t.Fatalf("Render() = %q, want it to contain %q", out, "hello")
	}

	// Nothing changed: a second render should be far smaller (cursor move
	// plus visibility only, no cell writes) since every line's digest
	// still matches the cache.
	second := w.Render(s)
	if len(second) >= len(out) {
		t.Fatalf("Render() with no changes = %d bytes, want fewer than first frame's %d", len(second), len(out))
	}
}

func TestRenderOnlyRewritesDirtyLine(t *testing.T) {
	s, p := newTestScreen(10, 3)
	w := NewWriter(&Capabilities{})
	p.Feed([]byte("line one\r\nline two"))
	w.Render(s)

	p.Feed([]byte("\r\nX"))
	out := w.Render(s)
	if !strings.Contains(string(out), "X") {
		t.Fatalf("Render() after dirtying one line = %q, want it to contain the new cell", out)
	}
}

func TestResetForcesFullRepaint(t *testing.T) {
	s, p := newTestScreen(10, 3)
	w := NewWriter(&Capabilities{})
	p.Feed([]byte("hello"))
	w.Render(s)
	w.Reset()
	out := w.Render(s)
	if !strings.Contains(string(out), "hello") {
		t.Fatalf("Render() after Reset() = %q, want a full repaint containing %q", out, "hello")
	}
}

func TestEncodeClipboardSetProducesOSC52(t *testing.T) {
	seq := EncodeClipboardSet("clipboard", []byte("hi"))
	if !strings.HasPrefix(seq, "\x1b]52;") {
		t.Fatalf("EncodeClipboardSet() = %q, want an OSC 52 sequence", seq)
	}
}

func TestNearestAnsi256MatchesPureColors(t *testing.T) {
	if got := nearestAnsi256(0, 0, 0); got != 0 && got != 16 {
		t.Fatalf("nearestAnsi256(black) = %d, want the black entry", got)
	}
}
