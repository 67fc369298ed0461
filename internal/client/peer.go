package client

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/tmuxcore/tmuxd/internal/keys"
	"github.com/tmuxcore/tmuxd/internal/pane"
	"github.com/tmuxcore/tmuxd/internal/server"
	"github.com/tmuxcore/tmuxd/internal/target"
)

// Identify holds the per-client IDENTIFY_* sub-messages gathered before
// IDENTIFY_DONE (§6): everything the server needs to know about a newly
// attached terminal.
type Identify struct {
	TTYName string
	Term    string
	Cwd     string
	Env     map[string]string
	Flags   uint32
}

// Peer is one attached client's live connection: the socket, its outbound
// frame queue (drained by a dedicated writer goroutine so a slow client
// never blocks the reader or the event loop), and its current navigation
// context (which session/window/pane it is looking at).
type Peer struct {
	ID       uint32
	ClientID string
	// ConnID correlates this connection's log lines across the accept loop,
	// the read/write goroutines, and whatever pane/session work the peer's
	// commands trigger, since ID is only unique within one listener's
	// lifetime and gets reused across daemon restarts.
	ConnID string

	conn net.Conn
	out  chan Frame
	done chan struct{}

	mu       sync.Mutex
	identify Identify
	current  target.Context

	consumer *pane.Consumer
	proxy    *fileProxy
	decoder  *keys.Decoder
}

func newPeer(id uint32, conn net.Conn) *Peer {
	return &Peer{
		ID:       id,
		ClientID: fmt.Sprintf("peer-%d", id),
		ConnID:   uuid.NewString(),
		conn:     conn,
		out:      make(chan Frame, 256),
		done:     make(chan struct{}),
		identify: Identify{Env: map[string]string{}},
		proxy:    newFileProxy(),
		decoder:  keys.NewDecoder(),
	}
}

// Send queues f for delivery to this peer; safe from any goroutine,
// including the server event loop when fanning out pane output.
func (p *Peer) Send(f Frame) {
	f.PeerID = p.ID
	select {
	case p.out <- f:
	case <-p.done:
	}
}

// Context returns the peer's current session/window/pane, the fallback
// used when a command's target string omits a component.
func (p *Peer) Context() target.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// SetContext updates the peer's current navigation context (e.g. after
// select-window/select-pane/new-session changes what it is attached to).
func (p *Peer) SetContext(ctx target.Context) {
	p.mu.Lock()
	p.current = ctx
	p.mu.Unlock()
}

func (p *Peer) writeLoop() {
	w := bufio.NewWriter(p.conn)
	for {
		select {
		case f, ok := <-p.out:
			if !ok {
				return
			}
			if err := WriteFrame(w, f); err != nil {
				slog.Debug("[client] write frame failed", "peer", p.ID, "conn_id", p.ConnID, "error", err)
				return
			}
			if err := w.Flush(); err != nil {
				slog.Debug("[client] flush failed", "peer", p.ID, "conn_id", p.ConnID, "error", err)
				return
			}
		case <-p.done:
			return
		}
	}
}

// close tears down the peer's connection and signals writeLoop/streamOutput
// to stop; streamOutput itself unsubscribes from its pane on this signal.
func (p *Peer) close() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	p.conn.Close()
}

// readLoop decodes frames from the peer's connection and dispatches them
// against srv, until the connection errors, is closed, or the peer detaches.
// Runs on its own goroutine; every state mutation it triggers crosses into
// srv via Execute/Post so it still serializes through the single event loop.
func (p *Peer) readLoop(srv *server.Server, onClose func(*Peer)) {
	defer onClose(p)
	r := bufio.NewReader(p.conn)

	versionFrame, err := ReadFrame(r)
	if err != nil {
		slog.Debug("[client] version handshake read failed", "peer", p.ID, "conn_id", p.ConnID, "error", err)
		return
	}
	if versionFrame.Type != TypeVersion || len(versionFrame.Payload) != 4 {
		slog.Warn("[client] first frame was not VERSION", "peer", p.ID, "conn_id", p.ConnID, "type", versionFrame.Type)
		return
	}
	if binary.LittleEndian.Uint32(versionFrame.Payload) != ProtocolVersion {
		slog.Warn("[client] protocol version mismatch", "peer", p.ID, "conn_id", p.ConnID)
		p.Send(versionFrame)
		return
	}
	versionReply := make([]byte, 4)
	binary.LittleEndian.PutUint32(versionReply, ProtocolVersion)
	p.Send(Frame{Type: TypeVersion, Payload: versionReply})

	slog.Info("[client] peer connected", "peer", p.ID, "conn_id", p.ConnID)
	srv.Post(server.Event{Kind: server.KindClientConnected, ClientID: p.ClientID})

	for {
		f, err := ReadFrame(r)
		if err != nil {
			return
		}
		if !p.dispatch(srv, f) {
			return
		}
	}
}

// dispatch handles one decoded frame, returning false when the connection
// should be torn down (DETACH/DETACHKILL/EXIT). A malformed COMMAND frame is
// answered with a STDERR frame and the connection stays open.
func (p *Peer) dispatch(srv *server.Server, f Frame) bool {
	switch f.Type {
	case TypeIdentifyTTY:
		p.mu.Lock()
		p.identify.TTYName = string(f.Payload)
		p.mu.Unlock()
	case TypeIdentifyTerm:
		p.mu.Lock()
		p.identify.Term = string(f.Payload)
		p.mu.Unlock()
	case TypeIdentifyCwd:
		p.mu.Lock()
		p.identify.Cwd = string(f.Payload)
		p.mu.Unlock()
	case TypeIdentifyEnv:
		k, v, ok := splitNulPair(f.Payload)
		if ok {
			p.mu.Lock()
			p.identify.Env[k] = v
			p.mu.Unlock()
		}
	case TypeIdentifyFlags:
		if len(f.Payload) >= 4 {
			p.mu.Lock()
			p.identify.Flags = binary.LittleEndian.Uint32(f.Payload)
			p.mu.Unlock()
		}
	case TypeIdentifyDone:
		// Nothing further to do: identify fields are read lazily by
		// whatever creates the peer's initial session.
	case TypeCommand:
		p.handleCommand(srv, f.Payload)
	case TypeResize:
		p.handleResize(f.Payload)
	case TypeStdin:
		p.handleStdin(srv, f.Payload)
	case TypeReadData:
		p.handleReadData(f.Payload, false)
	case TypeReadDone:
		p.handleReadData(f.Payload, true)
	case TypeDetach, TypeDetachKill, TypeExit:
		return false
	default:
		slog.Debug("[client] unhandled frame type", "peer", p.ID, "conn_id", p.ConnID, "type", f.Type)
	}
	return true
}

func (p *Peer) handleCommand(srv *server.Server, payload []byte) {
	argv, err := UnpackArgv(payload)
	if err != nil || len(argv) == 0 {
		p.Send(Frame{Type: TypeStderr, Payload: []byte("invalid command frame\n")})
		return
	}
	p.runCommand(srv, argv[0], argv[1:])
}

// runCommand executes one command against srv on p's behalf, reporting its
// result over the wire the way a COMMAND frame's response always has, and
// switching the peer's attached pane when the command changed it. Shared by
// TypeCommand frames (an explicit command from the dialer) and key bindings
// resolved out of the attached terminal's own input stream.
func (p *Peer) runCommand(srv *server.Server, name string, args []string) {
	if name == "detach-client" {
		p.Send(Frame{Type: TypeDetach})
		p.close()
		return
	}
	resp := srv.Execute(p.ClientID, server.Request{
		Command: name,
		Args:    args,
		Caller:  p.Context(),
	})
	if resp.Err != nil {
		p.Send(Frame{Type: TypeStderr, Payload: []byte(resp.Err.Error() + "\n")})
		return
	}
	if resp.Output != "" {
		p.Send(Frame{Type: TypeStdout, Payload: []byte(resp.Output)})
	}
	if resp.Ctx.Pane != nil {
		p.attachTo(resp.Ctx)
	}
}

// attachTo switches the peer onto ctx's pane: it unsubscribes from whatever
// pane it was previously streaming (if any), updates the peer's navigation
// context, and starts a fresh streamOutput goroutine before telling the
// client it is ready to render. Commands that move a peer's focus
// (new-session, attach-session, select-window, select-pane) all funnel
// through here.
func (p *Peer) attachTo(ctx target.Context) {
	p.mu.Lock()
	prevPane := p.current.Pane
	prevConsumer := p.consumer
	samePane := prevPane == ctx.Pane
	p.current = ctx
	p.mu.Unlock()

	if samePane {
		return
	}
	if prevPane != nil && prevConsumer != nil {
		prevPane.Unsubscribe(prevConsumer)
	}
	go p.streamOutput(ctx.Pane)
	p.Send(Frame{Type: TypeReady})
}

func (p *Peer) handleResize(payload []byte) {
	if len(payload) < 8 {
		return
	}
	sx := binary.LittleEndian.Uint32(payload[0:4])
	sy := binary.LittleEndian.Uint32(payload[4:8])
	ctx := p.Context()
	if ctx.Pane != nil {
		ctx.Pane.Resize(int(sx), int(sy))
	}
}

// handleStdin decodes a STDIN frame's raw bytes into key tokens and runs
// each one through srv's per-client key-table cursor (§4.K): a token that
// resolves to a bound command runs it instead of reaching the pane
// (tmux's prefix-key behavior); everything else is forwarded to the
// attached pane verbatim, byte for byte, exactly as it arrived.
func (p *Peer) handleStdin(srv *server.Server, payload []byte) {
	cursor := srv.ClientCursor(p.ClientID)
	var passthrough []byte
	flush := func() {
		if len(passthrough) == 0 {
			return
		}
		ctx := p.Context()
		if ctx.Pane != nil {
			if _, err := ctx.Pane.Write(passthrough); err != nil {
				slog.Debug("[client] write stdin to pane failed", "peer", p.ID, "conn_id", p.ConnID, "error", err)
			}
		}
		passthrough = nil
	}
	for _, tok := range p.decoder.Feed(payload) {
		wasRoot := cursor.AtRoot()
		binding, err := cursor.Dispatch(tok.Code)
		if err != nil {
			if wasRoot {
				passthrough = append(passthrough, tok.Raw...)
			}
			continue
		}
		flush()
		if binding.Command != "" {
			p.runCommand(srv, binding.Command, binding.Args)
		}
	}
	flush()
}

// streamOutput subscribes to ctx.Pane's pipe-tap and forwards every write
// as a STDOUT frame until the consumer channel closes (pane destroyed or
// explicitly unsubscribed), grounding the server's per-client render
// pipeline on internal/pane's existing broadcast mechanism instead of a
// second copy of pane output state.
func (p *Peer) streamOutput(pn *pane.Pane) {
	p.mu.Lock()
	p.consumer = pn.Subscribe(256)
	consumer := p.consumer
	p.mu.Unlock()

	if snapshot := pn.Snapshot(); len(snapshot) > 0 {
		p.Send(Frame{Type: TypeStdout, Payload: snapshot})
	}
	for {
		select {
		case data, ok := <-consumer.Output():
			if !ok {
				return
			}
			p.Send(Frame{Type: TypeStdout, Payload: data})
		case <-p.done:
			pn.Unsubscribe(consumer)
			return
		}
	}
}

func splitNulPair(payload []byte) (key, value string, ok bool) {
	for i, b := range payload {
		if b == 0 {
			return string(payload[:i]), string(payload[i+1:]), true
		}
	}
	return "", "", false
}
