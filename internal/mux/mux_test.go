package mux

import (
	"testing"

	"github.com/tmuxcore/tmuxd/internal/pane"
)

func testPaneConfig() pane.Config {
	return pane.Config{Shell: "/bin/cat", Columns: 80, Rows: 24}
}

func TestCreateSessionHasOneWindowOnePane(t *testing.T) {
	m := NewManager()
	sess, win, p, err := m.CreateSession(NewSessionOptions{Name: "work", WindowName: "main", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p.Destroy()

	if sess.CurrentWindow() != win {
		t.Fatalf("CurrentWindow() = %v, want %v", sess.CurrentWindow(), win)
	}
	if win.ActivePane() != p {
		t.Fatalf("ActivePane() = %v, want %v", win.ActivePane(), p)
	}
	if len(win.Panes()) != 1 {
		t.Fatalf("Panes() = %d, want 1", len(win.Panes()))
	}
}

func TestCreateSessionDuplicateNameRejected(t *testing.T) {
	m := NewManager()
	_, _, p1, err := m.CreateSession(NewSessionOptions{Name: "dup", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p1.Destroy()

	if _, _, _, err := m.CreateSession(NewSessionOptions{Name: "dup", PaneConfig: testPaneConfig()}); err == nil {
		t.Fatalf("second CreateSession() error = nil, want duplicate-name error")
	}
}

func TestNewWindowLinksIntoSession(t *testing.T) {
	m := NewManager()
	sess, _, p1, err := m.CreateSession(NewSessionOptions{Name: "s", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p1.Destroy()

	win2, p2, err := m.NewWindow(sess, "second", -1, testPaneConfig())
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}
	defer p2.Destroy()

	if len(sess.Winlinks()) != 2 {
		t.Fatalf("Winlinks() = %d, want 2", len(sess.Winlinks()))
	}
	if err := sess.SetCurrentWindow(win2.ID); err != nil {
		t.Fatalf("SetCurrentWindow() error = %v", err)
	}
	if sess.CurrentWindow() != win2 {
		t.Fatalf("CurrentWindow() = %v, want %v", sess.CurrentWindow(), win2)
	}
}

func TestLastWindowTogglesBack(t *testing.T) {
	m := NewManager()
	sess, win1, p1, err := m.CreateSession(NewSessionOptions{Name: "s", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p1.Destroy()
	win2, p2, err := m.NewWindow(sess, "second", -1, testPaneConfig())
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}
	defer p2.Destroy()

	sess.SetCurrentWindow(win2.ID)
	if err := sess.LastWindow(); err != nil {
		t.Fatalf("LastWindow() error = %v", err)
	}
	if sess.CurrentWindow() != win1 {
		t.Fatalf("CurrentWindow() after LastWindow() = %v, want win1", sess.CurrentWindow())
	}
}

func TestKillWindowDestroysOnLastReference(t *testing.T) {
	m := NewManager()
	sess, win1, p1, err := m.CreateSession(NewSessionOptions{Name: "s", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	win2, p2, err := m.NewWindow(sess, "second", -1, testPaneConfig())
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}
	defer p1.Destroy()
	defer p2.Destroy()

	if err := m.KillWindow(sess, win1.ID); err != nil {
		t.Fatalf("KillWindow() error = %v", err)
	}
	if _, ok := m.Window(win1.ID); ok {
		t.Fatalf("window %d still registered after KillWindow", win1.ID)
	}
	if len(sess.Winlinks()) != 1 {
		t.Fatalf("Winlinks() = %d, want 1", len(sess.Winlinks()))
	}
}

func TestAddPaneSplitsActivePaneAndRemovePaneSelectsMRU(t *testing.T) {
	m := NewManager()
	sess, win, p1, err := m.CreateSession(NewSessionOptions{Name: "s", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	_ = sess
	defer p1.Destroy()

	p2, err := m.AddPane(win, true, false, testPaneConfig())
	if err != nil {
		t.Fatalf("AddPane() error = %v", err)
	}
	if win.ActivePane() != p2 {
		t.Fatalf("ActivePane() = %v, want newly split pane", win.ActivePane())
	}
	if len(win.Panes()) != 2 {
		t.Fatalf("Panes() = %d, want 2", len(win.Panes()))
	}

	if err := m.RemovePane(win, p2); err != nil {
		t.Fatalf("RemovePane() error = %v", err)
	}
	if win.ActivePane() != p1 {
		t.Fatalf("ActivePane() after RemovePane() = %v, want p1", win.ActivePane())
	}
}

func TestSessionGroupSynchronizesWindows(t *testing.T) {
	m := NewManager()
	s1, _, p1, err := m.CreateSession(NewSessionOptions{Name: "a", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p1.Destroy()
	s2, _, p2, err := m.CreateSession(NewSessionOptions{Name: "b", PaneConfig: testPaneConfig()})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer p2.Destroy()

	m.Group(s1, s2)
	win3, p3, err := m.NewWindow(s1, "third", -1, testPaneConfig())
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}
	defer p3.Destroy()

	found := false
	for _, wl := range s2.Winlinks() {
		if wl.Window == win3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("session b did not pick up session a's new window after grouping")
	}
}
