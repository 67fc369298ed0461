package vt

import (
	"encoding/base64"
	"strings"
)

// oscByte accumulates an OSC string body, terminated by BEL (0x07) or
// ST (ESC \).
func (p *Parser) oscByte(b byte) {
	if p.stPending {
		p.stPending = false
		if b == '\\' {
			p.dispatchOSC(p.strBuf.String())
			p.st = stateGround
			return
		}
		// not a valid ST; treat the ESC as literal and keep collecting
		p.strBuf.WriteByte(0x1b)
	}
	switch b {
	case 0x07:
		p.dispatchOSC(p.strBuf.String())
		p.st = stateGround
	case 0x1b:
		p.stPending = true
	default:
		if p.strBuf.Len() < maxStringLen {
			p.strBuf.WriteByte(b)
		} else {
			p.st = stateIgnore
		}
	}
}

func (p *Parser) dispatchOSC(body string) {
	idx := strings.IndexByte(body, ';')
	if idx < 0 {
		return
	}
	code := body[:idx]
	arg := body[idx+1:]
	switch code {
	case "0", "2":
		if p.OnTitle != nil {
			p.OnTitle(arg)
		}
		p.s.Title = arg
	case "1":
		// icon name; the multiplexer has no separate icon-name slot
	case "7":
		p.s.Path = strings.TrimPrefix(arg, "file://")
	case "8":
		p.handleHyperlink(arg)
	case "52":
		p.handleOSC52(arg)
	case "10", "11", "12":
		// foreground/background/cursor color query-or-set: color state is
		// not modeled as it has no effect on cell contents; queries are
		// left unanswered (clients needing this talk to the real tty
		// directly when the pane is attached).
	case "104", "110", "111", "112":
		// reset color requests; no-op for the same reason.
	}
}

// handleHyperlink parses OSC 8's "params;uri" body. Only the URI is kept;
// the id= parameter (explicit hyperlink grouping) is not distinguished
// from an implicit one.
func (p *Parser) handleHyperlink(arg string) {
	i := strings.IndexByte(arg, ';')
	uri := arg
	if i >= 0 {
		uri = arg[i+1:]
	}
	if uri == "" {
		p.curHyperlink = 0
		return
	}
	p.curHyperlink = p.s.HyperlinkID(uri)
}

// handleOSC52 decodes a clipboard-set request: "selection;base64-data" or
// "selection;?" for a query.
func (p *Parser) handleOSC52(arg string) {
	i := strings.IndexByte(arg, ';')
	if i < 0 {
		return
	}
	sel, data := arg[:i], arg[i+1:]
	if data == "?" {
		if p.OnOSC52 != nil {
			p.OnOSC52(sel, nil)
		}
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return
	}
	if p.OnOSC52 != nil {
		p.OnOSC52(sel, decoded)
	}
}
