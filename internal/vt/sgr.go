package vt

import "github.com/tmuxcore/tmuxd/internal/grid"

// sgr applies a Select Graphic Rendition sequence's parameters to the
// parser's current attribute/color state, handling the 256-color and
// direct-RGB extended forms (38/48;5;n and 38/48;2;r;g;b) and the
// colon-subparameter underline-style form (4:n).
func (p *Parser) sgr() {
	if len(p.params) == 0 {
		p.resetAttrs()
		return
	}
	for i := 0; i < len(p.params); i++ {
		n := p.paramRaw(i)
		if n < 0 {
			n = 0
		}
		switch {
		case n == 0:
			p.resetAttrs()
		case n == 1:
			p.curAttr |= grid.AttrBold
		case n == 2:
			p.curAttr |= grid.AttrDim
		case n == 3:
			p.curAttr |= grid.AttrItalic
		case n == 4:
			p.curExt.Underline = grid.UnderlineSingle
		case n == 5 || n == 6:
			p.curAttr |= grid.AttrBlink
		case n == 7:
			p.curAttr |= grid.AttrReverse
		case n == 8:
			p.curAttr |= grid.AttrHidden
		case n == 9:
			p.curAttr |= grid.AttrStrikethrough
		case n == 21:
			p.curExt.Underline = grid.UnderlineDouble
		case n == 22:
			p.curAttr &^= grid.AttrBold | grid.AttrDim
		case n == 23:
			p.curAttr &^= grid.AttrItalic
		case n == 24:
			p.curExt.Underline = grid.UnderlineNone
		case n == 25:
			p.curAttr &^= grid.AttrBlink
		case n == 27:
			p.curAttr &^= grid.AttrReverse
		case n == 28:
			p.curAttr &^= grid.AttrHidden
		case n == 29:
			p.curAttr &^= grid.AttrStrikethrough
		case n == 53:
			p.curExt.Overline = true
		case n == 55:
			p.curExt.Overline = false
		case n >= 30 && n <= 37:
			p.curFg = grid.ColorSpec{Mode: grid.ColorIndexed, Index: uint8(n - 30)}
		case n == 38:
			i = p.extendedColor(i, &p.curFg)
		case n == 39:
			p.curFg = grid.ColorSpec{}
		case n >= 40 && n <= 47:
			p.curBg = grid.ColorSpec{Mode: grid.ColorIndexed, Index: uint8(n - 40)}
		case n == 48:
			i = p.extendedColor(i, &p.curBg)
		case n == 49:
			p.curBg = grid.ColorSpec{}
		case n == 58:
			var c grid.ColorSpec
			i = p.extendedColor(i, &c)
			p.curExt.UnderlineColor = c
		case n == 59:
			p.curExt.UnderlineColor = grid.ColorSpec{}
		case n >= 90 && n <= 97:
			p.curFg = grid.ColorSpec{Mode: grid.ColorIndexed, Index: uint8(n - 90 + 8)}
		case n >= 100 && n <= 107:
			p.curBg = grid.ColorSpec{Mode: grid.ColorIndexed, Index: uint8(n - 100 + 8)}
		}
	}
}

func (p *Parser) resetAttrs() {
	p.curAttr = 0
	p.curFg = grid.ColorSpec{}
	p.curBg = grid.ColorSpec{}
	p.curExt = grid.ExtCell{}
}

// extendedColor consumes the 38/48/58 extended color forms starting at
// index i (which holds the 38/48/58 itself), returning the new index to
// resume scanning from.
func (p *Parser) extendedColor(i int, dst *grid.ColorSpec) int {
	mode := p.paramRaw(i + 1)
	switch mode {
	case 5:
		if idx := p.paramRaw(i + 2); idx >= 0 {
			*dst = grid.ColorSpec{Mode: grid.ColorIndexed, Index: uint8(idx)}
		}
		return i + 2
	case 2:
		r, g, b := p.paramRaw(i+2), p.paramRaw(i+3), p.paramRaw(i+4)
		if r < 0 {
			r = 0
		}
		if g < 0 {
			g = 0
		}
		if b < 0 {
			b = 0
		}
		*dst = grid.ColorSpec{Mode: grid.ColorRGB, R: uint8(r), G: uint8(g), B: uint8(b)}
		return i + 4
	}
	return i + 1
}
