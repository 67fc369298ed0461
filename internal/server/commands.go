package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tmuxcore/tmuxd/internal/cmdqueue"
	"github.com/tmuxcore/tmuxd/internal/keys"
	"github.com/tmuxcore/tmuxd/internal/layout"
	"github.com/tmuxcore/tmuxd/internal/mux"
	"github.com/tmuxcore/tmuxd/internal/pane"
	"github.com/tmuxcore/tmuxd/internal/shell"
	"github.com/tmuxcore/tmuxd/internal/target"
)

// Request is one client-issued command (§4.I/§6): a command name, its
// remaining positional args, and the caller's current session/window/pane
// context used to resolve an omitted or relative -t target.
type Request struct {
	Command string
	Args    []string
	Caller  target.Context
}

// Response is what a command produced: text for display-message/list-*
// style commands, or an error tmux would have written to stderr. Ctx is
// populated whenever the command changes what the calling peer should be
// looking at (new-session, attach-session, select-window, select-pane, ...)
// so the peer can switch its output stream to the newly current pane.
type Response struct {
	Output string
	Err    error
	Ctx    target.Context
}

type handlerFunc func(s *Server, clientID string, req Request) Response

// handlers mirrors the teacher's command-name-keyed dispatch map, generalized
// from one-shot tmux-shim passthroughs to operations against internal/mux.
var handlers = map[string]handlerFunc{
	"new-session":    handleNewSession,
	"attach-session": handleAttachSession,
	"attach":         handleAttachSession,
	"has-session":    handleHasSession,
	"kill-session":   handleKillSession,
	"rename-session": handleRenameSession,
	"list-sessions":  handleListSessions,

	"new-window":    handleNewWindow,
	"kill-window":   handleKillWindow,
	"select-window": handleSelectWindow,
	"rename-window": handleRenameWindow,
	"list-windows":  handleListWindows,

	"split-window": handleSplitWindow,
	"kill-pane":    handleKillPane,
	"select-pane":  handleSelectPane,
	"resize-pane":  handleResizePane,
	"list-panes":   handleListPanes,

	"send-keys":       handleSendKeys,
	"display-message": handleDisplayMessage,
}

// Execute resolves req against the Resolver, runs it through its handler on
// the event loop goroutine, and blocks clientID's caller until it completes.
// Every mutation happens inside the cmdqueue item's Run, so two clients'
// commands against the same Manager never interleave.
func (s *Server) Execute(clientID string, req Request) Response {
	respCh := make(chan Response, 1)
	item := &cmdqueue.Item{
		Name: req.Command,
		Run: func(_ *cmdqueue.Context) (cmdqueue.Result, error) {
			h, ok := handlers[req.Command]
			if !ok {
				resp := Response{Err: fmt.Errorf("unknown command: %s", req.Command)}
				respCh <- resp
				return cmdqueue.ResultError, resp.Err
			}
			resp := h(s, clientID, req)
			respCh <- resp
			if resp.Err != nil {
				return cmdqueue.ResultError, resp.Err
			}
			return cmdqueue.ResultNormal, nil
		},
	}
	s.Submit(clientID, item)
	return <-respCh
}

// flags is a minimal tmux-style arg parser: "-t value" pairs, and bare
// boolean switches ("-h", "-v", "-d", "-b", "-Z"). Good enough for the
// command set this package implements; unknown flags are ignored the way
// tmux's own getopt would reject them at the CLI layer above this one.
type flags struct {
	values map[string]string
	bools  map[string]bool
	rest   []string
}

var valueFlags = map[string]bool{
	"-t": true, "-n": true, "-l": true, "-p": true, "-c": true, "-s": true, "-F": true,
}

// buildPaneConfig turns a command's "-c dir" flag and trailing shell-command
// argument (new-window/split-window's optional last positional arg) into a
// pane.Config: the command string is tokenized and any leading "cd ... &&"
// or "KEY=VALUE" prefix is pulled out of it, mirroring how tmux hands a
// window's shell-command to the pane it spawns.
func buildPaneConfig(dir string, rest []string) (pane.Config, error) {
	cfg := pane.Config{Dir: dir}
	if len(rest) == 0 {
		return cfg, nil
	}
	parsed, err := shell.ParseCommand(strings.Join(rest, " "), dir)
	if err != nil {
		return cfg, fmt.Errorf("invalid command: %w", err)
	}
	cfg.Dir = parsed.WorkDir
	cfg.Args = parsed.Argv
	for k, v := range parsed.ExtraEnv {
		cfg.Env = append(cfg.Env, k+"="+v)
	}
	return cfg, nil
}

func parseFlags(args []string) flags {
	f := flags{values: map[string]string{}, bools: map[string]bool{}}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || a == "-" {
			f.rest = append(f.rest, a)
			continue
		}
		if valueFlags[a] && i+1 < len(args) {
			f.values[a] = args[i+1]
			i++
			continue
		}
		f.bools[a] = true
	}
	return f
}

func handleNewSession(s *Server, clientID string, req Request) Response {
	f := parseFlags(req.Args)
	name := f.values["-s"]
	if name == "" {
		name = fmt.Sprintf("session-%d", len(s.Manager.Sessions())+1)
	}
	cfg, err := buildPaneConfig(f.values["-c"], f.rest)
	if err != nil {
		return Response{Err: err}
	}
	sess, win, p, err := s.Manager.CreateSession(mux.NewSessionOptions{
		Name:       name,
		WindowName: f.values["-n"],
		PaneConfig: cfg,
	})
	if err != nil {
		return Response{Err: err}
	}
	ctx := target.Context{Session: sess, Window: win, Pane: p}
	if f.bools["-d"] {
		return Response{Output: fmt.Sprintf("%s:%d.%s", sess.Name, win.ID, p.ID)}
	}
	return Response{Output: fmt.Sprintf("%s:%d.%s", sess.Name, win.ID, p.ID), Ctx: ctx}
}

// handleAttachSession resolves -t (or the caller's own context, or the most
// recently created session when neither is given) to a session's current
// window/pane, without creating anything new — the way tmux's attach-session
// switches an existing client onto a session someone else may have started.
func handleAttachSession(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	tgt := f.values["-t"]
	if tgt == "" && len(f.rest) > 0 {
		tgt = f.rest[0]
	}
	var sess *mux.Session
	if tgt == "" && req.Caller.Session == nil {
		sessions := s.Manager.Sessions()
		if len(sessions) == 0 {
			return Response{Err: fmt.Errorf("no sessions")}
		}
		sess = sessions[len(sessions)-1]
	} else {
		res, err := target.New(s.Manager).Resolve(tgt, req.Caller)
		if err != nil {
			return Response{Err: err}
		}
		sess = res.Session
	}
	win := sess.CurrentWindow()
	if win == nil {
		return Response{Err: fmt.Errorf("session %s has no windows", sess.Name)}
	}
	p := win.ActivePane()
	if p == nil {
		return Response{Err: fmt.Errorf("window %d has no panes", win.ID)}
	}
	ctx := target.Context{Session: sess, Window: win, Pane: p}
	return Response{Output: fmt.Sprintf("%s:%d.%s", sess.Name, win.ID, p.ID), Ctx: ctx}
}

func handleHasSession(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	if _, ok := s.Manager.Session(f.values["-t"]); !ok {
		return Response{Err: fmt.Errorf("session not found: %s", f.values["-t"])}
	}
	return Response{}
}

func handleKillSession(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	sess, ok := s.Manager.Session(f.values["-t"])
	if !ok {
		return Response{Err: fmt.Errorf("session not found: %s", f.values["-t"])}
	}
	if err := s.Manager.KillSession(sess); err != nil {
		return Response{Err: err}
	}
	return Response{}
}

func handleRenameSession(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	sess, ok := s.Manager.Session(f.values["-t"])
	if !ok {
		return Response{Err: fmt.Errorf("session not found: %s", f.values["-t"])}
	}
	if len(f.rest) == 0 {
		return Response{Err: fmt.Errorf("rename-session: missing new name")}
	}
	sess.Name = f.rest[0]
	return Response{}
}

func handleListSessions(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	format := f.values["-F"]
	if format == "" {
		format = mux.DefaultSessionListFormat
	}
	var b strings.Builder
	for _, sess := range s.Manager.Sessions() {
		var win *mux.Window
		var p *pane.Pane
		if win = sess.CurrentWindow(); win != nil {
			p = win.ActivePane()
		}
		fmt.Fprintln(&b, mux.ExpandFormat(format, sess, win, p))
	}
	return Response{Output: b.String()}
}

func handleNewWindow(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	cfg, err := buildPaneConfig(f.values["-c"], f.rest)
	if err != nil {
		return Response{Err: err}
	}
	win, p, err := s.Manager.NewWindow(res.Session, f.values["-n"], -1, cfg)
	if err != nil {
		return Response{Err: err}
	}
	return Response{Output: fmt.Sprintf("@%d.%s", win.ID, p.ID)}
}

func handleKillWindow(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	wl := findWinlink(res.Session, res.Window)
	if wl == nil {
		return Response{Err: fmt.Errorf("window not linked into session")}
	}
	if err := s.Manager.KillWindow(res.Session, wl.Index); err != nil {
		return Response{Err: err}
	}
	return Response{}
}

func handleSelectWindow(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	tgt := f.values["-t"]
	if tgt == "" && len(f.rest) > 0 {
		tgt = f.rest[0]
	}
	res, err := target.New(s.Manager).Resolve(tgt, req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	wl := findWinlink(res.Session, res.Window)
	if wl == nil {
		return Response{Err: fmt.Errorf("window not linked into session")}
	}
	if err := res.Session.SetCurrentWindow(wl.Index); err != nil {
		return Response{Err: err}
	}
	return Response{Ctx: target.Context{Session: res.Session, Window: res.Window, Pane: res.Window.ActivePane()}}
}

func handleRenameWindow(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	if len(f.rest) == 0 {
		return Response{Err: fmt.Errorf("rename-window: missing new name")}
	}
	res.Window.Name = f.rest[0]
	return Response{}
}

func handleListWindows(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	format := f.values["-F"]
	if format == "" {
		format = mux.DefaultWindowListFormat
	}
	var b strings.Builder
	for _, wl := range res.Session.Winlinks() {
		fmt.Fprintln(&b, mux.ExpandFormat(format, res.Session, wl.Window, wl.Window.ActivePane()))
	}
	return Response{Output: b.String()}
}

func handleSplitWindow(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	horizontal := f.bools["-h"]
	before := f.bools["-b"]
	cfg, err := buildPaneConfig(f.values["-c"], f.rest)
	if err != nil {
		return Response{Err: err}
	}
	p, err := s.Manager.AddPane(res.Window, horizontal, before, cfg)
	if err != nil {
		return Response{Err: err}
	}
	return Response{Output: p.ID}
}

func handleKillPane(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	if err := s.Manager.RemovePane(res.Window, res.Pane); err != nil {
		return Response{Err: err}
	}
	return Response{}
}

func handleSelectPane(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	tgt := f.values["-t"]
	if tgt == "" && len(f.rest) > 0 {
		tgt = f.rest[0]
	}
	res, err := target.New(s.Manager).Resolve(tgt, req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	if err := res.Window.SetActivePane(res.Pane.ID); err != nil {
		return Response{Err: err}
	}
	return Response{Ctx: target.Context{Session: res.Session, Window: res.Window, Pane: res.Pane}}
}

func handleResizePane(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	horizontal := f.bools["-L"] || f.bools["-R"]
	delta := 1
	if l, ok := f.values["-l"]; ok {
		if n, err := strconv.Atoi(l); err == nil {
			delta = n
		}
	}
	if f.bools["-L"] || f.bools["-U"] {
		delta = -delta
	}
	if err := layout.Resize(res.Window.Layout(), res.Pane.ID, horizontal, delta); err != nil {
		return Response{Err: err}
	}
	return Response{}
}

func handleListPanes(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	format := f.values["-F"]
	if format == "" {
		format = mux.DefaultPaneListFormat
	}
	var b strings.Builder
	for _, p := range res.Window.Panes() {
		fmt.Fprintln(&b, mux.ExpandFormat(format, res.Session, res.Window, p))
	}
	return Response{Output: b.String()}
}

func handleSendKeys(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	payload := keys.TranslateSendKeys(f.rest)
	if _, err := res.Pane.Write(payload); err != nil {
		return Response{Err: err}
	}
	return Response{}
}

func handleDisplayMessage(s *Server, _ string, req Request) Response {
	f := parseFlags(req.Args)
	res, err := target.New(s.Manager).Resolve(f.values["-t"], req.Caller)
	if err != nil {
		return Response{Err: err}
	}
	msg := strings.Join(f.rest, " ")
	if msg == "" {
		msg = fmt.Sprintf("%s:%d.%s", res.Session.Name, res.Window.ID, res.Pane.ID)
	}
	return Response{Output: msg}
}

func findWinlink(sess *mux.Session, win *mux.Window) *mux.Winlink {
	for _, wl := range sess.Winlinks() {
		if wl.Window == win {
			return wl
		}
	}
	return nil
}

