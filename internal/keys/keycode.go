// Package keys implements named key tables and key_code parsing (§4.K):
// binding lookup, per-client key-table cursor with REPEAT timeout, and
// mouse key masking.
package keys

import "fmt"

// Code is a parsed key: a base key (a rune, or one of the Key* special
// values) plus a modifier bitmask, mirroring tmux's key_code packing of
// modifiers into high bits above the printable range.
type Code uint64

// Modifier bits, OR'd into the high bits of a Code above any valid rune.
const (
	ModCtrl  Code = 1 << 33
	ModMeta  Code = 1 << 34
	ModShift Code = 1 << 35

	mouseBit Code = 1 << 36
	modMask       = ModCtrl | ModMeta | ModShift | mouseBit
)

// Special (non-rune) base keys, numbered above any valid Unicode code point
// so they never collide with a literal rune.
const (
	KeyNone Code = 0x110000 + iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyEnter
	KeyEscape
	KeyTab
	KeyBackspace
	KeySpace
	KeyDelete
	KeyInsert
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

var namedKeys = map[string]Code{
	"Up": KeyUp, "Down": KeyDown, "Left": KeyLeft, "Right": KeyRight,
	"Home": KeyHome, "End": KeyEnd, "PageUp": KeyPageUp, "PPage": KeyPageUp,
	"PageDown": KeyPageDown, "NPage": KeyPageDown,
	"Enter": KeyEnter, "Escape": KeyEscape, "Tab": KeyTab,
	"BSpace": KeyBackspace, "Backspace": KeyBackspace, "Space": KeySpace,
	"Delete": KeyDelete, "DC": KeyDelete, "Insert": KeyInsert, "IC": KeyInsert,
	"F1": KeyF1, "F2": KeyF2, "F3": KeyF3, "F4": KeyF4, "F5": KeyF5, "F6": KeyF6,
	"F7": KeyF7, "F8": KeyF8, "F9": KeyF9, "F10": KeyF10, "F11": KeyF11, "F12": KeyF12,
}

var namedKeysReverse = func() map[Code]string {
	out := make(map[Code]string, len(namedKeys))
	for name, c := range namedKeys {
		if _, ok := out[c]; !ok {
			out[c] = name
		}
	}
	return out
}()

// Base returns the code with modifier bits stripped.
func (c Code) Base() Code { return c &^ modMask }

// HasCtrl, HasMeta, HasShift report the modifier bits set on c.
func (c Code) HasCtrl() bool  { return c&ModCtrl != 0 }
func (c Code) HasMeta() bool  { return c&ModMeta != 0 }
func (c Code) HasShift() bool { return c&ModShift != 0 }

// IsMouse reports whether c encodes a mouse event key (distinct namespace
// from keyboard keys so a mouse binding never accidentally shadows, or is
// shadowed by, a keyboard one with the same modifier bits — tmux's mouse
// key masking).
func (c Code) IsMouse() bool { return c&mouseBit != 0 }

// Mouse wraps a mouse button code into the mouse key namespace.
func Mouse(button Code) Code { return button | mouseBit }

// String renders c back into "C-a"/"M-Up"/"Enter"-style notation.
func (c Code) String() string {
	mods := ""
	if c.HasCtrl() {
		mods += "C-"
	}
	if c.HasMeta() {
		mods += "M-"
	}
	if c.HasShift() {
		mods += "S-"
	}
	base := c.Base()
	if name, ok := namedKeysReverse[base]; ok {
		return mods + name
	}
	return fmt.Sprintf("%s%c", mods, rune(base))
}

// Parse reads tmux key notation ("C-a", "M-Enter", "Up", "x") into a Code.
func Parse(s string) (Code, error) {
	if s == "" {
		return 0, fmt.Errorf("keys: empty key spec")
	}
	var mods Code
	for len(s) >= 2 && s[1] == '-' {
		switch s[0] {
		case 'C', 'c':
			mods |= ModCtrl
		case 'M', 'm':
			mods |= ModMeta
		case 'S', 's':
			mods |= ModShift
		default:
			return 0, fmt.Errorf("keys: unknown modifier in %q", s)
		}
		s = s[2:]
	}
	if s == "" {
		return 0, fmt.Errorf("keys: empty key spec after modifiers")
	}
	if named, ok := namedKeys[s]; ok {
		return named | mods, nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("keys: unrecognized key literal %q", s)
	}
	return Code(runes[0]) | mods, nil
}
