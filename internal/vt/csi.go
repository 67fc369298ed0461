package vt

import (
	"github.com/tmuxcore/tmuxd/internal/grid"
	"github.com/tmuxcore/tmuxd/internal/screen"
)

// csiByte collects a CSI sequence's private marker, parameters and
// intermediate bytes, dispatching on the final byte.
func (p *Parser) csiByte(b byte) {
	switch {
	case b >= 0x3c && b <= 0x3f && len(p.params) == 0 && !p.haveParam && p.private == 0:
		p.private = b
		p.st = stateCSIParam
	case b >= '0' && b <= '9':
		p.curParam = p.curParam*10 + int(b-'0')
		p.haveParam = true
		p.st = stateCSIParam
	case b == ';' || b == ':':
		p.pushParam()
		p.st = stateCSIParam
	case b >= 0x20 && b <= 0x2f:
		if len(p.inter) < maxIntermediates {
			p.inter = append(p.inter, b)
		}
		p.st = stateCSIIntermediate
	case b >= 0x40 && b <= 0x7e:
		p.pushParam()
		if len(p.params) <= maxParams {
			p.dispatchCSI(b)
		}
		p.st = stateGround
	default:
		p.st = stateGround
	}
	if len(p.params) > maxParams {
		p.st = stateGround
	}
}

func (p *Parser) pushParam() {
	p.params = append(p.params, -1)
	if p.haveParam {
		p.params[len(p.params)-1] = p.curParam
	}
	p.curParam = 0
	p.haveParam = false
}

// param returns the i-th parameter, or def if absent/defaulted (-1 or 0
// when omitted, matching the convention that 0 and "absent" are the same
// for most CSI sequences).
func (p *Parser) param(i, def int) int {
	if i >= len(p.params) || p.params[i] < 0 || p.params[i] == 0 {
		return def
	}
	return p.params[i]
}

// paramRaw returns the i-th parameter's literal value, -1 if absent.
func (p *Parser) paramRaw(i int) int {
	if i >= len(p.params) {
		return -1
	}
	return p.params[i]
}

func (p *Parser) dispatchCSI(final byte) {
	s, w := p.s, p.w
	switch final {
	case 'A':
		w.CursorMove(s.CX, s.CY-p.param(0, 1), false)
	case 'B', 'e':
		w.CursorMove(s.CX, s.CY+p.param(0, 1), false)
	case 'C', 'a':
		w.CursorMove(s.CX+p.param(0, 1), s.CY, false)
	case 'D':
		w.CursorMove(s.CX-p.param(0, 1), s.CY, false)
	case 'E':
		w.CursorMove(0, s.CY+p.param(0, 1), false)
	case 'F':
		w.CursorMove(0, s.CY-p.param(0, 1), false)
	case 'G', '`':
		w.CursorMove(p.param(0, 1)-1, s.CY, false)
	case 'd':
		w.CursorMove(s.CX, p.param(0, 1)-1, false)
	case 'H', 'f':
		w.CursorMove(p.param(1, 1)-1, p.param(0, 1)-1, s.ModeHas(screen.ModeOrigin))
	case 'I':
		for i := 0; i < p.param(0, 1); i++ {
			p.tab()
		}
	case 'Z':
		for i := 0; i < p.param(0, 1); i++ {
			p.backTab()
		}
	case 'J':
		switch p.param(0, 0) {
		case 0:
			w.ClearToEndOfScreen()
		case 1:
			w.ClearToStartOfScreen()
		case 2, 3:
			w.ClearScreen()
		}
	case 'K':
		switch p.param(0, 0) {
		case 0:
			w.ClearToEndOfLine()
		case 1:
			w.ClearToStartOfLine()
		case 2:
			w.ClearLine()
		}
	case 'L':
		w.InsertLine(p.param(0, 1))
	case 'M':
		w.DeleteLine(p.param(0, 1))
	case 'P':
		w.DeleteCharacter(p.param(0, 1))
	case '@':
		w.InsertCharacter(p.param(0, 1))
	case 'X':
		n := p.param(0, 1)
		s.Grid.Clear(s.CX, s.AbsY(s.CY), n, 1, grid.ColorSpec{})
	case 'S':
		w.ScrollUp(p.param(0, 1))
	case 'T':
		w.ScrollDown(p.param(0, 1))
	case 'r':
		if p.private == 0 {
			w.SetScrollRegion(p.param(0, 1)-1, p.param(1, s.SY)-1)
		}
	case 's':
		if p.private == 0 {
			w.SetScrollRegionHorizontal(p.param(0, 1)-1, p.param(1, s.SX)-1)
		} else {
			p.saveCursor()
		}
	case 'u':
		p.restoreCursor()
	case 'h':
		p.setMode(true)
	case 'l':
		p.setMode(false)
	case 'm':
		p.sgr()
	case 'n':
		if p.OnDA != nil {
			p.OnDA(final, p.params, p.private)
		}
	case 'c':
		if p.OnDA != nil {
			p.OnDA(final, p.params, p.private)
		}
	case 'q':
		if len(p.inter) > 0 && p.inter[0] == ' ' {
			p.setCursorStyle(p.param(0, 1))
		}
	case 't':
		p.windowOp()
	}
}

func (p *Parser) backTab() {
	s := p.s
	x := s.CX - 1
	for x > 0 && !s.TabStops[x] {
		x--
	}
	if x < 0 {
		x = 0
	}
	p.w.CursorMove(x, s.CY, false)
}

func (p *Parser) setCursorStyle(n int) {
	switch n {
	case 0, 1:
		p.s.CursorStyle = screen.CursorBlock
	case 2:
		p.s.CursorStyle = screen.CursorBlock
	case 3, 4:
		p.s.CursorStyle = screen.CursorUnderline
	case 5, 6:
		p.s.CursorStyle = screen.CursorBar
	}
}

// windowOp handles the subset of XTWINOPS (CSI t) relevant to a headless
// multiplexer pane: the title stack (22/23).
func (p *Parser) windowOp() {
	s := p.s
	switch p.param(0, 0) {
	case 22:
		s.PushTitle()
	case 23:
		s.PopTitle()
	}
}

func (p *Parser) setMode(on bool) {
	s := p.s
	if p.private == '?' {
		for _, m := range p.params {
			p.setDECMode(m, on)
		}
		return
	}
	for _, m := range p.params {
		switch m {
		case 4: // IRM insert mode
			if on {
				s.ModeSet(screen.ModeInsert)
			} else {
				s.ModeClear(screen.ModeInsert)
			}
		}
	}
}

func (p *Parser) setDECMode(m int, on bool) {
	s := p.s
	set := func(mode screen.Mode) {
		if on {
			s.ModeSet(mode)
		} else {
			s.ModeClear(mode)
		}
	}
	switch m {
	case 1: // DECCKM, handled by the key-input encoder, not the screen
	case 6:
		set(screen.ModeOrigin)
	case 7:
		set(screen.ModeWrap)
	case 12:
		set(screen.ModeCursorBlink)
	case 25:
		set(screen.ModeCursorVisible)
	case 1000:
		set(screen.ModeMouseStandard)
	case 1002:
		set(screen.ModeMouseButton)
	case 1003:
		set(screen.ModeMouseAll)
	case 1004:
		set(screen.ModeFocusOn)
	case 1006:
		set(screen.ModeMouseSGR)
	case 1049, 1047, 47:
		if on {
			s.EnterAlt()
		} else {
			s.ExitAlt()
		}
	case 2004:
		set(screen.ModeBracketPaste)
	}
}
