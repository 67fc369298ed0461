package keys

import "unicode/utf8"

// Token is one decoded unit of raw terminal input: the Code a binding table
// would match against, and the exact bytes that produced it (forwarded to
// the pane verbatim when nothing binds the code).
type Token struct {
	Code Code
	Raw  []byte
}

// Decoder turns a raw attached-terminal input byte stream into Tokens,
// recognizing C0 control bytes, common xterm CSI/SS3 escape sequences
// (arrow keys, Home/End/PageUp/PageDown/Delete/Insert, F1-F12), ESC+char as
// a Meta-modified key, and otherwise decoding UTF-8 runes one at a time. A
// sequence split across two reads is buffered until it completes.
type Decoder struct {
	pending []byte
}

// NewDecoder creates an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed decodes data, appended to any bytes left over from a previous call,
// and returns every complete Token found. An incomplete trailing escape
// sequence is retained for the next Feed call.
func (d *Decoder) Feed(data []byte) []Token {
	buf := data
	if len(d.pending) > 0 {
		buf = append(append([]byte(nil), d.pending...), data...)
	}
	d.pending = nil

	var tokens []Token
	i := 0
	for i < len(buf) {
		b := buf[i]
		switch {
		case b == 0x1b:
			consumed, tok, incomplete := decodeEscape(buf[i:])
			if incomplete {
				d.pending = append(d.pending, buf[i:]...)
				i = len(buf)
				continue
			}
			tokens = append(tokens, tok)
			i += consumed
		case b == '\r' || b == '\n':
			tokens = append(tokens, Token{Code: KeyEnter, Raw: []byte{b}})
			i++
		case b == '\t':
			tokens = append(tokens, Token{Code: KeyTab, Raw: []byte{b}})
			i++
		case b == 0x7f:
			tokens = append(tokens, Token{Code: KeyBackspace, Raw: []byte{b}})
			i++
		case b < 0x20:
			tokens = append(tokens, Token{Code: ModCtrl | Code('a'+b-1), Raw: []byte{b}})
			i++
		default:
			r, size := utf8.DecodeRune(buf[i:])
			if r == utf8.RuneError && size == 1 && i+4 > len(buf) {
				// Might be a truncated multi-byte rune at the end of this
				// read; wait for more bytes rather than emitting garbage.
				d.pending = append(d.pending, buf[i:]...)
				i = len(buf)
				continue
			}
			tokens = append(tokens, Token{Code: Code(r), Raw: append([]byte(nil), buf[i:i+size]...)})
			i += size
		}
	}
	return tokens
}

// isCSIFinal reports whether b terminates a CSI parameter sequence
// (ECMA-48: final bytes are 0x40-0x7E, everything before is a parameter or
// intermediate byte).
func isCSIFinal(b byte) bool { return b >= 0x40 && b <= 0x7e }

// decodeEscape decodes one escape sequence starting at buf[0]==0x1b,
// returning how many bytes it consumed, the resulting token, and whether
// the sequence was cut off (more bytes needed).
func decodeEscape(buf []byte) (consumed int, tok Token, incomplete bool) {
	if len(buf) < 2 {
		return 0, Token{}, true
	}
	switch buf[1] {
	case '[':
		j := 2
		for j < len(buf) && !isCSIFinal(buf[j]) {
			j++
		}
		if j >= len(buf) {
			return 0, Token{}, true
		}
		seq := buf[:j+1]
		code, ok := csiCodes[string(seq[2:])]
		if !ok {
			code = KeyNone
		}
		return len(seq), Token{Code: code, Raw: append([]byte(nil), seq...)}, false
	case 'O':
		if len(buf) < 3 {
			return 0, Token{}, true
		}
		seq := buf[:3]
		code, ok := ss3Codes[buf[2]]
		if !ok {
			code = KeyNone
		}
		return 3, Token{Code: code, Raw: append([]byte(nil), seq...)}, false
	default:
		r, size := utf8.DecodeRune(buf[1:])
		if r == utf8.RuneError && size == 1 && len(buf) < 5 {
			return 0, Token{}, true
		}
		seq := buf[:1+size]
		return len(seq), Token{Code: Code(r) | ModMeta, Raw: append([]byte(nil), seq...)}, false
	}
}

// csiCodes maps a CSI sequence's parameter+final bytes (everything after
// "ESC [") to the key it represents, covering the xterm sequences an
// attached pty actually sends for cursor/navigation keys.
var csiCodes = map[string]Code{
	"A": KeyUp, "B": KeyDown, "C": KeyRight, "D": KeyLeft,
	"H": KeyHome, "F": KeyEnd,
	"1~": KeyHome, "4~": KeyEnd,
	"2~": KeyInsert, "3~": KeyDelete,
	"5~": KeyPageUp, "6~": KeyPageDown,
	"11~": KeyF1, "12~": KeyF2, "13~": KeyF3, "14~": KeyF4,
	"15~": KeyF5, "17~": KeyF6, "18~": KeyF7, "19~": KeyF8,
	"20~": KeyF9, "21~": KeyF10, "23~": KeyF11, "24~": KeyF12,
}

// ss3Codes maps the byte following "ESC O" (SS3-introduced application-mode
// cursor and function keys) to the key it represents.
var ss3Codes = map[byte]Code{
	'A': KeyUp, 'B': KeyDown, 'C': KeyRight, 'D': KeyLeft,
	'H': KeyHome, 'F': KeyEnd,
	'P': KeyF1, 'Q': KeyF2, 'R': KeyF3, 'S': KeyF4,
}
