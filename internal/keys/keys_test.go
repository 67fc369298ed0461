package keys

import (
	"testing"
	"time"
)

func TestParseAndString(t *testing.T) {
	cases := []string{"C-a", "M-Enter", "x", "Up", "C-M-b"}
	for _, s := range cases {
		code, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", s, err)
		}
		if got := code.String(); got != s {
			t.Fatalf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestRegistryRefcountDeletesOnLastRelease(t *testing.T) {
	r := NewRegistry()
	a := r.Table("copy-mode")
	b := r.Table("copy-mode")
	if a != b {
		t.Fatalf("Table() returned different instances for same name")
	}
	r.Release(a)
	if len(r.Names()) != 1 {
		t.Fatalf("table removed too early")
	}
	r.Release(b)
	if len(r.Names()) != 0 {
		t.Fatalf("table not removed after last release")
	}
}

func TestCursorSwitchesTableOnPrefix(t *testing.T) {
	r := NewRegistry()
	root := r.Table("root")
	defer r.Release(root)
	prefixKey, _ := Parse("C-b")
	root.Bind(prefixKey, &Binding{Command: "prefix", SwitchToTable: "prefix"})

	prefixTable := r.Table("prefix")
	defer r.Release(prefixTable)
	splitKey, _ := Parse("%")
	prefixTable.Bind(splitKey, &Binding{Command: "split-window"})

	cur := NewCursor(r, "root")
	defer cur.Close()

	if _, err := cur.Dispatch(prefixKey); err != nil {
		t.Fatalf("Dispatch(prefix) error = %v", err)
	}
	if cur.Table().Name != "prefix" {
		t.Fatalf("Table() = %s, want prefix", cur.Table().Name)
	}

	b, err := cur.Dispatch(splitKey)
	if err != nil {
		t.Fatalf("Dispatch(split) error = %v", err)
	}
	if b.Command != "split-window" {
		t.Fatalf("Command = %s, want split-window", b.Command)
	}
	if cur.Table().Name != "root" {
		t.Fatalf("Table() after non-repeat dispatch = %s, want root", cur.Table().Name)
	}
}

func TestCursorRepeatExpires(t *testing.T) {
	r := NewRegistry()
	root := r.Table("root")
	defer r.Release(root)
	resizeKey, _ := Parse("Up")
	root.Bind(resizeKey, &Binding{Command: "resize-pane", Repeat: true})

	cur := NewCursor(r, "root")
	defer cur.Close()
	fakeNow := time.Now()
	cur.now = func() time.Time { return fakeNow }

	if _, err := cur.Dispatch(resizeKey); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !cur.repeating {
		t.Fatalf("repeating = false, want true right after a repeat binding fires")
	}

	fakeNow = fakeNow.Add(DefaultRepeatTimeout + time.Millisecond)
	cur.mu.Lock()
	cur.expireRepeatLocked()
	stillRepeating := cur.repeating
	cur.mu.Unlock()
	if stillRepeating {
		t.Fatalf("repeating = true after timeout elapsed, want false")
	}
}

func TestCursorFallsBackToRootTable(t *testing.T) {
	r := NewRegistry()
	root := r.Table("root")
	defer r.Release(root)
	detachKey, _ := Parse("C-d")
	root.Bind(detachKey, &Binding{Command: "detach-client"})

	prefixKey, _ := Parse("C-b")
	root.Bind(prefixKey, &Binding{Command: "prefix", SwitchToTable: "prefix"})
	prefixTable := r.Table("prefix")
	defer r.Release(prefixTable)

	cur := NewCursor(r, "root")
	defer cur.Close()
	cur.Dispatch(prefixKey)

	b, err := cur.Dispatch(detachKey)
	if err != nil {
		t.Fatalf("Dispatch() error = %v, want fallback to root binding", err)
	}
	if b.Command != "detach-client" {
		t.Fatalf("Command = %s, want detach-client", b.Command)
	}
}

func TestMouseKeyNamespaceIsDistinctFromKeyboard(t *testing.T) {
	r := NewRegistry()
	root := r.Table("root")
	defer r.Release(root)

	k, _ := Parse("x")
	root.Bind(k, &Binding{Command: "keyboard-x"})
	root.Bind(Mouse(k), &Binding{Command: "mouse-x"})

	kb, ok := root.Lookup(k)
	if !ok || kb.Command != "keyboard-x" {
		t.Fatalf("Lookup(keyboard) = %+v, want keyboard-x", kb)
	}
	mb, ok := root.Lookup(Mouse(k))
	if !ok || mb.Command != "mouse-x" {
		t.Fatalf("Lookup(mouse) = %+v, want mouse-x", mb)
	}
}
