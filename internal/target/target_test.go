package target

import (
	"testing"

	"github.com/tmuxcore/tmuxd/internal/mux"
	"github.com/tmuxcore/tmuxd/internal/pane"
)

func testPaneConfig() pane.Config {
	return pane.Config{Shell: "/bin/cat", Columns: 80, Rows: 24}
}

func TestResolveEmptyTargetUsesContext(t *testing.T) {
	m := mux.NewManager()
	sess, win, p, err := m.CreateSession(mux.NewSessionOptions{Name: "work", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p.Destroy()

	r := New(m)
	got, err := r.Resolve("", Context{Session: sess, Window: win, Pane: p})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Pane != p {
		t.Fatalf("Resolve() pane = %v, want %v", got.Pane, p)
	}
}

func TestResolvePaneID(t *testing.T) {
	m := mux.NewManager()
	_, _, p, err := m.CreateSession(mux.NewSessionOptions{Name: "work", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p.Destroy()

	r := New(m)
	got, err := r.Resolve(p.ID, Context{})
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", p.ID, err)
	}
	if got.Pane != p {
		t.Fatalf("Resolve() pane = %v, want %v", got.Pane, p)
	}
}

func TestResolveSessionByExactName(t *testing.T) {
	m := mux.NewManager()
	_, win, p, err := m.CreateSession(mux.NewSessionOptions{Name: "deploy", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p.Destroy()

	r := New(m)
	got, err := r.Resolve("deploy", Context{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Window != win {
		t.Fatalf("Resolve() window = %v, want %v", got.Window, win)
	}
}

func TestResolveSessionByUnambiguousPrefix(t *testing.T) {
	m := mux.NewManager()
	_, _, p, err := m.CreateSession(mux.NewSessionOptions{Name: "deployment", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p.Destroy()

	r := New(m)
	got, err := r.Resolve("depl", Context{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Session.Name != "deployment" {
		t.Fatalf("Resolve() session = %s, want deployment", got.Session.Name)
	}
}

func TestResolveAmbiguousPrefixErrors(t *testing.T) {
	m := mux.NewManager()
	_, _, p1, err := m.CreateSession(mux.NewSessionOptions{Name: "dev-a", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p1.Destroy()
	_, _, p2, err := m.CreateSession(mux.NewSessionOptions{Name: "dev-b", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p2.Destroy()

	r := New(m)
	if _, err := r.Resolve("dev", Context{}); err == nil {
		t.Fatalf("Resolve() error = nil, want ambiguity error")
	}
}

func TestResolveWindowPaneTarget(t *testing.T) {
	m := mux.NewManager()
	sess, _, p1, err := m.CreateSession(mux.NewSessionOptions{Name: "s", WindowName: "main", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p1.Destroy()

	r := New(m)
	got, err := r.Resolve("s:main.0", Context{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Pane != p1 {
		t.Fatalf("Resolve() pane = %v, want %v", got.Pane, p1)
	}
	_ = sess
}

func TestResolveDirectionToken(t *testing.T) {
	m := mux.NewManager()
	sess, win, p1, err := m.CreateSession(mux.NewSessionOptions{Name: "s", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p1.Destroy()
	p2, err := m.AddPane(win, true, false, testPaneConfig())
	if err != nil {
		t.Fatalf("AddPane() error = %v", err)
	}
	defer p2.Destroy()

	r := New(m)
	got, err := r.Resolve("{left}", Context{Session: sess, Window: win, Pane: p2})
	if err != nil {
		t.Fatalf("Resolve({left}) error = %v", err)
	}
	if got.Pane != p1 {
		t.Fatalf("Resolve({left}) pane = %v, want %v", got.Pane, p1)
	}
}
