// Package pane owns one PTY-backed pane (§4.D): its process, its VT-parsed
// screen, pipe-tap mirroring for attached clients, and resize coalescing.
package pane

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tmuxcore/tmuxd/internal/screen"
	"github.com/tmuxcore/tmuxd/internal/terminal"
	"github.com/tmuxcore/tmuxd/internal/vt"
)

// Status is the pane lifecycle state (§4.D state machine).
type Status uint8

const (
	StatusSpawn Status = iota
	StatusRunning
	StatusStatusReady // process exited but output/state not yet drained
	StatusExited
	StatusDestroyed
)

func (s Status) String() string {
	switch s {
	case StatusSpawn:
		return "spawn"
	case StatusRunning:
		return "running"
	case StatusStatusReady:
		return "status-ready"
	case StatusExited:
		return "exited"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Config describes how to spawn a pane's process.
type Config struct {
	Shell   string
	Args    []string
	Dir     string
	Env     []string
	Columns int
	Rows    int
	History int // scrollback line limit

	// OnClipboard is invoked (off the pane's read goroutine, under its
	// mutex) whenever the application sets the clipboard via OSC 52, so
	// the server can forward it toward the attached client (§4.I OSC
	// handling; the server itself holds no clipboard).
	OnClipboard func(selection string, data []byte)
	// OnTitle is invoked whenever the application sets its title via OSC 0/2.
	OnTitle func(title string)

	// Flush, when set, routes this pane's consumer broadcasts through a
	// shared terminal.OutputFlushManager instead of fanning out on every
	// PTY read, coalescing bursty output into fewer, larger writes before
	// the render/wire path sees it. nil falls back to broadcasting
	// immediately (e.g. in tests that construct a pane standalone).
	Flush *terminal.OutputFlushManager
}

var idCounter uint64

// nextID allocates a pane id in tmux's "%N" form.
func nextID() string {
	n := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%%%d", n)
}

// Consumer receives a copy of every byte written to the pane (a pipe-tap
// subscriber), each on its own buffered channel.
type Consumer struct {
	id  uint64
	out chan []byte
}

// Output returns the channel this consumer's bytes arrive on. The channel
// is closed when the consumer is removed or the pane is destroyed.
func (c *Consumer) Output() <-chan []byte { return c.out }

// Pane is one PTY-backed terminal, its VT-parsed screen, and subscribers.
type Pane struct {
	ID string

	mu     sync.Mutex
	status Status
	term   *terminal.Terminal
	screen *screen.Screen
	writer *screen.Writer
	parser *vt.Parser

	cols, rows int

	consumers   map[uint64]*Consumer
	consumerSeq uint64

	tap    tapRing
	onExit func(*Pane)
	flush  *terminal.OutputFlushManager

	resizePending bool
	resizeCols    int
	resizeRows    int
	resizeTimer   *time.Timer
	resizeDelay   time.Duration
}

// ErrClosed is returned by operations on a destroyed pane.
var ErrClosed = errors.New("pane: destroyed")

// Spawn creates and starts a new pane process.
func Spawn(cfg Config, onExit func(*Pane)) (*Pane, error) {
	if cfg.Columns <= 0 {
		cfg.Columns = 80
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 24
	}
	if cfg.History <= 0 {
		cfg.History = 2000
	}

	p := &Pane{
		ID:          nextID(),
		status:      StatusSpawn,
		cols:        cfg.Columns,
		rows:        cfg.Rows,
		consumers:   map[uint64]*Consumer{},
		tap:         newTapRing(256 * 1024),
		onExit:      onExit,
		flush:       cfg.Flush,
		resizeDelay: 25 * time.Millisecond,
	}
	p.screen = screen.New(cfg.Columns, cfg.Rows, cfg.History)
	p.writer = screen.NewWriter(p.screen)
	p.parser = vt.New(p.screen, p.writer)
	p.parser.OnOSC52 = cfg.OnClipboard
	p.parser.OnTitle = cfg.OnTitle

	term, err := terminal.Start(terminal.Config{
		Shell:   cfg.Shell,
		Args:    cfg.Args,
		Dir:     cfg.Dir,
		Env:     cfg.Env,
		Columns: cfg.Columns,
		Rows:    cfg.Rows,
	})
	if err != nil {
		return nil, fmt.Errorf("pane %s: spawn: %w", p.ID, err)
	}
	p.term = term
	p.status = StatusRunning

	go p.readLoop()
	return p, nil
}

func (p *Pane) readLoop() {
	p.term.ReadLoop(func(data []byte) {
		p.mu.Lock()
		p.parser.Feed(data)
		p.tap.write(data)
		p.mu.Unlock()
		if p.flush != nil {
			p.flush.Write(p.ID, data)
		} else {
			p.mu.Lock()
			p.broadcastLocked(data)
			p.mu.Unlock()
		}
	})
	p.onProcessExit()
}

// DeliverOutput broadcasts data to this pane's consumers. It is the
// OutputFlushManager's emit callback: the manager coalesces a pane's raw
// PTY reads into fewer, larger chunks on a single shared timer and calls
// back here once a chunk is ready to fan out.
func (p *Pane) DeliverOutput(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcastLocked(data)
}

// broadcastLocked fans data out to every consumer. Held under p.mu so it
// can never race with Destroy/Unsubscribe closing a consumer's channel.
func (p *Pane) broadcastLocked(data []byte) {
	for _, c := range p.consumers {
		select {
		case c.out <- data:
		default:
			// a slow consumer drops frames rather than stalling the pane;
			// it can recover state from the next Snapshot call.
			slog.Warn("[pane] consumer channel full, dropping output", "pane", p.ID)
		}
	}
}

func (p *Pane) onProcessExit() {
	p.mu.Lock()
	p.status = StatusStatusReady
	p.mu.Unlock()

	if p.onExit != nil {
		p.onExit(p)
	}

	p.mu.Lock()
	p.status = StatusExited
	p.mu.Unlock()
}

// Write sends input bytes to the pane's PTY.
func (p *Pane) Write(data []byte) (int, error) {
	p.mu.Lock()
	if p.status == StatusDestroyed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	term := p.term
	p.mu.Unlock()
	return term.Write(data)
}

// Status returns the pane's current lifecycle state.
func (p *Pane) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Size returns the pane's current column/row count.
func (p *Pane) Size() (cols, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cols, p.rows
}

// WithScreen runs fn with exclusive access to the pane's parsed screen. This
// is the render pipeline's only supported way to read cell state: the parser
// goroutine mutates the screen under the same mutex, so any other access
// would race it.
func (p *Pane) WithScreen(fn func(s *screen.Screen)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.screen)
}

// Snapshot returns the bytes needed to reproduce the pane's current
// on-screen content for a newly attached client: the tap ring's backlog.
func (p *Pane) Snapshot() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tap.snapshot()
}

// Subscribe registers a pipe-tap consumer that receives every subsequent
// write on its own buffered channel.
func (p *Pane) Subscribe(buffered int) *Consumer {
	if buffered <= 0 {
		buffered = 64
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumerSeq++
	c := &Consumer{id: p.consumerSeq, out: make(chan []byte, buffered)}
	p.consumers[c.id] = c
	return c
}

// Unsubscribe removes a consumer and closes its channel.
func (p *Pane) Unsubscribe(c *Consumer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.consumers[c.id]; ok {
		delete(p.consumers, c.id)
		close(c.out)
	}
}

// Destroy terminates the pane's process and releases resources.
func (p *Pane) Destroy() error {
	p.mu.Lock()
	if p.status == StatusDestroyed {
		p.mu.Unlock()
		return nil
	}
	p.status = StatusDestroyed
	if p.resizeTimer != nil {
		p.resizeTimer.Stop()
	}
	term := p.term
	for _, c := range p.consumers {
		close(c.out)
	}
	p.consumers = map[uint64]*Consumer{}
	p.mu.Unlock()

	return term.Close()
}
