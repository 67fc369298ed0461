// Package vt implements the byte-stream parser (§4.B) that drives a
// screen.Writer from raw PTY output: UTF-8 decoding with grapheme
// clustering, C0/C1 controls, ESC/CSI/OSC/DCS sequence recognition and
// dispatch, and the mode toggles those sequences carry.
package vt

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/tmuxcore/tmuxd/internal/grid"
	"github.com/tmuxcore/tmuxd/internal/screen"
)

// state identifies the parser's position in the escape-sequence grammar.
// The layout follows the classic VT500-series state machine (ground, escape,
// csi entry/param/intermediate, osc string, dcs passthrough, ignore).
type state uint8

const (
	stateGround state = iota
	stateEscape
	stateCSIEntry
	stateCSIParam
	stateCSIIntermediate
	stateOSCString
	stateDCSEntry
	stateDCSPassthrough
	stateAPCString
	stateIgnore
)

// maxParams bounds CSI/SGR parameter collection; sequences with more
// parameters than this are treated as malformed and discarded.
const maxParams = 32

// maxIntermediates bounds intermediate-byte collection similarly.
const maxIntermediates = 4

// maxStringLen bounds a stored OSC string body to guard against a runaway
// or adversarial stream; past it the parser ignores bytes until ESC or BEL.
// DCS and APC bodies are never stored and have no length bound.
const maxStringLen = 1 << 20

// Parser drives a screen.Writer from a byte stream.
type Parser struct {
	w *screen.Writer
	s *screen.Screen

	st state

	params   []int
	curParam int
	haveParam bool
	private  byte // CSI private marker ('?', '>', '=', 0)
	inter    []byte

	strBuf    strings.Builder
	stPending bool // ESC seen inside an OSC/DCS/APC string, awaiting '\' for ST

	// pending grapheme-cluster state for uniseg across chunk boundaries
	runeBuf  []byte
	gstate   int

	curFg, curBg grid.ColorSpec
	curAttr      grid.Attr
	curExt       grid.ExtCell
	curHyperlink uint32

	// OnOSC52 is invoked with the decoded payload when the application sets
	// the clipboard via OSC 52; nil payload on a query ("?").
	OnOSC52 func(selection string, payload []byte)
	// OnTitle is invoked when OSC 0/2 sets the window title.
	OnTitle func(title string)
	// OnBell is invoked on BEL outside of a string sequence.
	OnBell func()
	// OnDA is invoked on a Device Attributes / Device Status Report query
	// (CSI c, CSI n) so the caller can write a reply to the PTY.
	OnDA func(final byte, params []int, private byte)

	savedCX, savedCY int
}

// New creates a parser that drives w (and its underlying screen s).
func New(s *screen.Screen, w *screen.Writer) *Parser {
	return &Parser{s: s, w: w}
}

// Feed consumes a chunk of PTY output, updating the screen in place.
// Partial multi-byte UTF-8 sequences and partial escape sequences persist
// across calls.
func (p *Parser) Feed(data []byte) {
	p.w.Start()
	defer p.w.Stop()

	buf := data
	if len(p.runeBuf) > 0 {
		buf = append(p.runeBuf, data...)
		p.runeBuf = nil
	}

	for len(buf) > 0 {
		if p.st == stateGround && buf[0] < 0x80 {
			p.groundByte(buf[0])
			buf = buf[1:]
			continue
		}
		if p.st == stateGround {
			if !utf8.FullRune(buf) {
				// incomplete multi-byte sequence at the chunk boundary;
				// hold it for the next Feed call.
				p.runeBuf = append(p.runeBuf, buf...)
				break
			}
			cluster, rest, width, newState := uniseg.FirstGraphemeClusterInString(string(buf), p.gstate)
			p.gstate = newState
			p.putGrapheme(cluster, width)
			buf = []byte(rest)
			continue
		}
		b := buf[0]
		buf = buf[1:]
		p.escapeByte(b)
	}
}

func (p *Parser) putGrapheme(cluster string, width int) {
	c := grid.Cell{Width: uint8(width), Attr: p.curAttr, Fg: p.curFg, Bg: p.curBg}
	if width <= 0 {
		c.Width = 1
	}
	c.SetGrapheme(cluster)
	ext := p.curExt
	ext.Hyperlink = p.curHyperlink
	p.w.PutCell(c, ext)
}

// groundByte handles a single byte while in the ground state: either a C0
// control or an escape initiator, everything else having already been
// routed to putGrapheme via the UTF-8 path in Feed.
func (p *Parser) groundByte(b byte) {
	switch b {
	case 0x1b:
		p.resetSequence()
		p.st = stateEscape
	case '\r':
		p.w.CursorMove(p.s.RLeft, p.s.CY, false)
	case '\n', '\v', '\f':
		p.w.LineFeed()
	case '\b':
		if p.s.CX > 0 {
			p.s.CX--
		}
	case '\t':
		p.tab()
	case 0x07:
		if p.OnBell != nil {
			p.OnBell()
		}
	case 0x0e, 0x0f:
		// SO/SI (G0/G1 charset select) — ACS handling is attribute-level,
		// not implemented as a distinct charset table; ignored.
	default:
		if b < 0x20 || b == 0x7f {
			return
		}
		c := grid.Cell{Width: 1, Attr: p.curAttr, Fg: p.curFg, Bg: p.curBg}
		c.SetGrapheme(string(rune(b)))
		ext := p.curExt
		ext.Hyperlink = p.curHyperlink
		p.w.PutCell(c, ext)
	}
}

func (p *Parser) tab() {
	s := p.s
	x := s.CX + 1
	for x < len(s.TabStops) && !s.TabStops[x] {
		x++
	}
	if x >= s.SX {
		x = s.SX - 1
	}
	p.w.CursorMove(x, s.CY, false)
}

func (p *Parser) resetSequence() {
	p.params = p.params[:0]
	p.curParam = 0
	p.haveParam = false
	p.private = 0
	p.inter = p.inter[:0]
	p.strBuf.Reset()
	p.stPending = false
}

// escapeByte advances the parser while outside the ground state.
func (p *Parser) escapeByte(b byte) {
	switch p.st {
	case stateEscape:
		p.escapeSecondByte(b)
	case stateCSIEntry, stateCSIParam, stateCSIIntermediate:
		p.csiByte(b)
	case stateOSCString:
		p.oscByte(b)
	case stateDCSEntry, stateDCSPassthrough:
		p.dcsByte(b)
	case stateAPCString:
		p.apcByte(b)
	case stateIgnore:
		if b == 0x1b || b == 0x07 {
			p.st = stateGround
		}
	default:
		p.st = stateGround
	}
}

func (p *Parser) escapeSecondByte(b byte) {
	switch b {
	case '[':
		p.st = stateCSIEntry
	case ']':
		p.st = stateOSCString
	case 'P':
		p.st = stateDCSEntry
	case '_', '^':
		p.st = stateAPCString // APC and PM share the string-terminated form
	case '7':
		p.saveCursor()
		p.st = stateGround
	case '8':
		p.restoreCursor()
		p.st = stateGround
	case 'c':
		p.softReset()
		p.st = stateGround
	case 'D':
		p.w.LineFeed()
		p.st = stateGround
	case 'M':
		p.w.ReverseIndex()
		p.st = stateGround
	case 'E':
		p.w.CursorMove(p.s.RLeft, p.s.CY, false)
		p.w.LineFeed()
		p.st = stateGround
	case 'H':
		if p.s.CX >= 0 && p.s.CX < len(p.s.TabStops) {
			p.s.TabStops[p.s.CX] = true
		}
		p.st = stateGround
	case '=', '>':
		// DECKPAM/DECKPNM (keypad mode) — no distinct keypad state kept.
		p.st = stateGround
	default:
		p.st = stateGround
	}
}

func (p *Parser) saveCursor() {
	p.savedCX, p.savedCY = p.s.CX, p.s.CY
}

func (p *Parser) restoreCursor() {
	p.w.CursorMove(p.savedCX, p.savedCY, false)
}

// softReset implements DECSTR / ESC c: clear scroll region, attributes and
// parser state without touching the grid contents.
func (p *Parser) softReset() {
	s := p.s
	s.RUpper, s.RLower = 0, s.SY-1
	s.RLeft, s.RRight = 0, s.SX-1
	p.curAttr = 0
	p.curFg, p.curBg = grid.ColorSpec{}, grid.ColorSpec{}
	p.curExt = grid.ExtCell{}
	p.curHyperlink = 0
	s.ModeSet(screen.ModeWrap | screen.ModeCursorVisible)
	p.resetSequence()
}

