package vt

// dcsByte handles a Device Control String: parameters/intermediates up to
// the passthrough-introducing final byte, then raw passthrough bytes until
// ST. The multiplexer does not interpret DCS payloads (no Sixel graphics
// support); their bytes are skipped without being stored, while the
// terminator is still recognized correctly.
func (p *Parser) dcsByte(b byte) {
	if p.st == stateDCSEntry {
		switch {
		case b >= '0' && b <= '9':
			p.curParam = p.curParam*10 + int(b-'0')
			p.haveParam = true
		case b == ';':
			p.pushParam()
		case b >= 0x20 && b <= 0x2f:
			if len(p.inter) < maxIntermediates {
				p.inter = append(p.inter, b)
			}
		case b >= 0x40 && b <= 0x7e:
			p.pushParam()
			p.st = stateDCSPassthrough
		default:
			p.st = stateGround
		}
		return
	}

	if p.stPending {
		p.stPending = false
		if b == '\\' {
			p.st = stateGround
			return
		}
	}
	switch b {
	case 0x1b:
		p.stPending = true
	case 0x07:
		p.st = stateGround
	}
}
