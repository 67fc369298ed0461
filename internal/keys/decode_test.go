package keys

import "testing"

func TestDecoderSimpleRune(t *testing.T) {
	d := NewDecoder()
	toks := d.Feed([]byte("x"))
	if len(toks) != 1 || toks[0].Code != Code('x') {
		t.Fatalf("Feed(%q) = %+v, want single 'x' token", "x", toks)
	}
	if string(toks[0].Raw) != "x" {
		t.Fatalf("Raw = %q, want %q", toks[0].Raw, "x")
	}
}

func TestDecoderCtrlByte(t *testing.T) {
	d := NewDecoder()
	toks := d.Feed([]byte{0x02}) // Ctrl-b
	if len(toks) != 1 {
		t.Fatalf("Feed(C-b) = %+v, want 1 token", toks)
	}
	want := ModCtrl | Code('b')
	if toks[0].Code != want {
		t.Errorf("Code = %v, want %v", toks[0].Code, want)
	}
}

func TestDecoderArrowKeys(t *testing.T) {
	d := NewDecoder()
	toks := d.Feed([]byte("\x1b[A\x1b[B\x1b[C\x1b[D"))
	want := []Code{KeyUp, KeyDown, KeyRight, KeyLeft}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Code != w {
			t.Errorf("token %d code = %v, want %v", i, toks[i].Code, w)
		}
	}
}

func TestDecoderSplitEscapeSequence(t *testing.T) {
	d := NewDecoder()
	first := d.Feed([]byte("\x1b["))
	if len(first) != 0 {
		t.Fatalf("Feed(partial) = %+v, want no tokens yet", first)
	}
	second := d.Feed([]byte("A"))
	if len(second) != 1 || second[0].Code != KeyUp {
		t.Fatalf("Feed(completion) = %+v, want [KeyUp]", second)
	}
}

func TestDecoderMetaChar(t *testing.T) {
	d := NewDecoder()
	toks := d.Feed([]byte("\x1bf"))
	if len(toks) != 1 {
		t.Fatalf("Feed(M-f) = %+v, want 1 token", toks)
	}
	want := ModMeta | Code('f')
	if toks[0].Code != want {
		t.Errorf("Code = %v, want %v", toks[0].Code, want)
	}
}

func TestDecoderEnterAndTab(t *testing.T) {
	d := NewDecoder()
	toks := d.Feed([]byte("\r\t"))
	if len(toks) != 2 || toks[0].Code != KeyEnter || toks[1].Code != KeyTab {
		t.Fatalf("Feed(CR TAB) = %+v", toks)
	}
}

func TestDecoderUnknownCSIFallsBackToKeyNone(t *testing.T) {
	d := NewDecoder()
	toks := d.Feed([]byte("\x1b[99x"))
	if len(toks) != 1 || toks[0].Code != KeyNone {
		t.Fatalf("Feed(unknown CSI) = %+v, want [KeyNone]", toks)
	}
	if string(toks[0].Raw) != "\x1b[99x" {
		t.Errorf("Raw = %q, want original sequence preserved for passthrough", toks[0].Raw)
	}
}

func TestDecoderMultiByteUTF8(t *testing.T) {
	d := NewDecoder()
	toks := d.Feed([]byte("é"))
	if len(toks) != 1 || toks[0].Code != Code('é') {
		t.Fatalf("Feed(é) = %+v", toks)
	}
}
