// Package grid implements the persistent cell matrix backing a screen,
// including scrollback history and line reflow.
package grid

import "github.com/mattn/go-runewidth"

// InvalidWidth marks a cell whose grapheme has no sensible display width.
const InvalidWidth = 0xff

// ColorMode selects how a ColorSpec's color is encoded.
type ColorMode uint8

const (
	ColorDefault ColorMode = iota
	ColorIndexed
	ColorRGB
)

// ColorSpec is a cell foreground/background/underline color.
type ColorSpec struct {
	Mode  ColorMode
	Index uint8 // valid when Mode == ColorIndexed
	R, G, B uint8 // valid when Mode == ColorRGB
}

// UnderlineStyle is one of the five underline variants a cell may carry.
type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
	UnderlineDotted
	UnderlineDashed
)

// Attr is a bitmask of simple cell attributes (everything that fits in a
// packed byte in the reference implementation).
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrReverse
	AttrBlink
	AttrHidden
	AttrStrikethrough
	AttrACS
)

// ExtCell carries the attributes of a cell that don't fit the packed
// encoding: non-default underline style/color, overline, and hyperlinks.
// A Cell promotes to referencing an ExtCell only when it needs one.
type ExtCell struct {
	Underline      UnderlineStyle
	UnderlineColor ColorSpec
	Overline       bool
	Hyperlink      uint32 // index into the screen's hyperlink table; 0 = none
}

func (e ExtCell) isDefault() bool {
	return e.Underline == UnderlineNone && e.UnderlineColor == (ColorSpec{}) &&
		!e.Overline && e.Hyperlink == 0
}

// maxGraphemeBytes bounds a cell's UTF-8 grapheme, per the spec's "up to 21
// bytes" cell contract (enough for a base rune plus several combining marks).
const maxGraphemeBytes = 21

// Cell is one screen position: a grapheme plus its display attributes.
//
// IsExtended/ExtIndex reference a Line's Extended slice. The invariant an
// implementation must preserve: an extended index on a live cell always
// resolves to an entry in that line's Extended slice (never dangling).
type Cell struct {
	Grapheme    [maxGraphemeBytes]byte
	GraphemeLen uint8
	Width       uint8 // 1, 2, or InvalidWidth
	Attr        Attr
	Fg, Bg      ColorSpec

	IsExtended bool
	ExtIndex   int32
}

// Blank returns the default blank cell with the given background.
func Blank(bg ColorSpec) Cell {
	c := Cell{Width: 1}
	c.Grapheme[0] = ' '
	c.GraphemeLen = 1
	c.Bg = bg
	return c
}

// IsBlank reports whether c is a default space cell with no attributes.
func (c Cell) IsBlank() bool {
	return c.GraphemeLen == 1 && c.Grapheme[0] == ' ' && c.Attr == 0 &&
		!c.IsExtended && c.Fg == (ColorSpec{})
}

// SetGrapheme stores a grapheme (a base rune plus any combining runes) into
// the cell, truncating to maxGraphemeBytes if the rendered form doesn't fit.
func (c *Cell) SetGrapheme(s string) {
	n := copy(c.Grapheme[:], s)
	c.GraphemeLen = uint8(n)
}

// String returns the cell's grapheme as a string.
func (c Cell) String() string {
	return string(c.Grapheme[:c.GraphemeLen])
}

// RuneWidth reports the terminal display width of r: 0, 1, or 2.
func RuneWidth(r rune) int {
	return runewidth.RuneWidth(r)
}
