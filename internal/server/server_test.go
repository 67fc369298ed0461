package server

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tmuxcore/tmuxd/internal/keys"
	"github.com/tmuxcore/tmuxd/internal/mux"
	"github.com/tmuxcore/tmuxd/internal/pane"
	"github.com/tmuxcore/tmuxd/internal/target"
	"github.com/tmuxcore/tmuxd/internal/testutil"
)

func testPaneConfig() pane.Config {
	return pane.Config{Shell: "/bin/cat", Columns: 80, Rows: 24}
}

func newTestServer(t *testing.T) (*Server, context.Context, context.CancelFunc) {
	t.Helper()
	s := New(mux.NewManager())
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(cancel)
	return s, ctx, cancel
}

func TestExecuteNewSessionAndListSessions(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.Execute("client1", Request{Command: "new-session", Args: []string{"-s", "work"}})
	if resp.Err != nil {
		t.Fatalf("new-session error = %v", resp.Err)
	}

	resp = s.Execute("client1", Request{Command: "list-sessions"})
	if resp.Err != nil {
		t.Fatalf("list-sessions error = %v", resp.Err)
	}
	if !strings.Contains(resp.Output, "work") {
		t.Fatalf("list-sessions output = %q, want it to mention work", resp.Output)
	}
}

func TestExecuteUnknownCommandErrors(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp := s.Execute("client1", Request{Command: "frobnicate"})
	if resp.Err == nil {
		t.Fatalf("Execute(unknown) error = nil, want error")
	}
}

func TestExecuteSplitAndKillPane(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.Execute("client1", Request{Command: "new-session", Args: []string{"-s", "work"}})
	if resp.Err != nil {
		t.Fatalf("new-session error = %v", resp.Err)
	}
	sess, _ := s.Manager.Session("work")
	win := sess.CurrentWindow()

	caller := target.Context{Session: sess, Window: win, Pane: win.ActivePane()}
	resp = s.Execute("client1", Request{Command: "split-window", Args: []string{"-h"}, Caller: caller})
	if resp.Err != nil {
		t.Fatalf("split-window error = %v", resp.Err)
	}
	if len(win.Panes()) != 2 {
		t.Fatalf("Panes() after split = %d, want 2", len(win.Panes()))
	}

	target2 := target.Context{Session: sess, Window: win, Pane: win.ActivePane()}
	resp = s.Execute("client1", Request{Command: "kill-pane", Caller: target2})
	if resp.Err != nil {
		t.Fatalf("kill-pane error = %v", resp.Err)
	}
	if len(win.Panes()) != 1 {
		t.Fatalf("Panes() after kill-pane = %d, want 1", len(win.Panes()))
	}
}

func TestExecuteSendKeysWritesToPane(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp := s.Execute("client1", Request{Command: "new-session", Args: []string{"-s", "echoer"}})
	if resp.Err != nil {
		t.Fatalf("new-session error = %v", resp.Err)
	}
	sess, _ := s.Manager.Session("echoer")
	win := sess.CurrentWindow()
	caller := target.Context{Session: sess, Window: win, Pane: win.ActivePane()}

	resp = s.Execute("client1", Request{Command: "send-keys", Args: []string{"hello"}, Caller: caller})
	if resp.Err != nil {
		t.Fatalf("send-keys error = %v", resp.Err)
	}
}

func TestAwaitPaneOutputFiresOnPost(t *testing.T) {
	s, _, _ := newTestServer(t)
	done := make(chan struct{})
	s.AwaitPaneOutput("%1", func() { close(done) })
	s.Post(Event{Kind: KindPaneOutput, PaneID: "%1"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("AwaitPaneOutput callback never fired")
	}
}

func TestClientConnectDisconnectLifecycle(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.Post(Event{Kind: KindClientConnected, ClientID: "c1"})
	time.Sleep(10 * time.Millisecond)

	s.mu.Lock()
	_, hasQueue := s.queues["c1"]
	_, hasCursor := s.cursors["c1"]
	s.mu.Unlock()
	if !hasQueue || !hasCursor {
		t.Fatalf("client connect did not register queue/cursor")
	}

	s.Post(Event{Kind: KindClientDisconnected, ClientID: "c1"})
	time.Sleep(10 * time.Millisecond)

	s.mu.Lock()
	_, hasQueue = s.queues["c1"]
	_, hasCursor = s.cursors["c1"]
	s.mu.Unlock()
	if hasQueue || hasCursor {
		t.Fatalf("client disconnect did not clean up queue/cursor")
	}
}

func TestUnknownEventKindLogsWarning(t *testing.T) {
	buf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	s, _, _ := newTestServer(t)

	s.Post(Event{Kind: Kind(99)})
	time.Sleep(10 * time.Millisecond)

	if !strings.Contains(buf.String(), "unknown event kind") {
		t.Fatalf("log output = %q, want a warning about the unknown kind", buf.String())
	}
}

func TestSeedDefaultBindingsPrefixRoundTrip(t *testing.T) {
	s, _, _ := newTestServer(t)
	cursor := s.ClientCursor("c1")

	prefixKey, err := keys.Parse("C-b")
	if err != nil {
		t.Fatalf("Parse(C-b) error = %v", err)
	}
	if _, err := cursor.Dispatch(prefixKey); err != nil {
		t.Fatalf("dispatch prefix key: %v", err)
	}
	if cursor.AtRoot() {
		t.Fatalf("cursor should have left root after the prefix key")
	}

	newWindowKey, err := keys.Parse("c")
	if err != nil {
		t.Fatalf("Parse(c) error = %v", err)
	}
	binding, err := cursor.Dispatch(newWindowKey)
	if err != nil {
		t.Fatalf("dispatch new-window key: %v", err)
	}
	if binding.Command != "new-window" {
		t.Fatalf("binding.Command = %q, want new-window", binding.Command)
	}
	if !cursor.AtRoot() {
		t.Fatalf("cursor should have returned to root after a non-repeating binding fired")
	}
}
