// Package tty implements the termcap-driven render pipeline (§4.I): for
// each attached client it diffs the pane's parsed screen against a
// per-client cell cache and emits the minimal sequence of cursor moves,
// attribute changes, and erase/character writes needed to bring the
// client's real terminal in sync, the same "dirty region, not full
// repaint" discipline tmux's tty.c uses.
package tty

import (
	"fmt"
	"strings"

	"github.com/xo/terminfo"
)

// Capabilities wraps the subset of a terminal's terminfo entry the render
// pipeline consults, with safe fallbacks when a capability is absent (a
// "dumb" terminal still gets correct, just less optimized, output).
type Capabilities struct {
	ti *terminfo.Terminfo

	hasCup     bool
	hasHpa     bool
	hasVpa     bool
	hasEl      bool
	hasEch     bool
	hasSetaf   bool
	hasSetab   bool
	hasSgr0    bool
	maxColors  int
	syncUpdate bool
}

// DetectCapabilities loads the terminfo entry for termName (falling back to
// $TERM) and probes the capabilities the writer needs. env is an extra hint
// (a client's forwarded environment: TERM, TERM_PROGRAM and the
// TMUXCORE_NO_SYNC opt-out) used for the synchronized-update heuristic, since that mode
// isn't a standard terminfo capability in most system databases.
func DetectCapabilities(termName string, env map[string]string) *Capabilities {
	var ti *terminfo.Terminfo
	var err error
	if termName != "" {
		ti, err = terminfo.LoadFrom(termName)
	} else {
		ti, err = terminfo.LoadFromEnv()
	}
	c := &Capabilities{ti: ti}
	if err != nil || ti == nil {
		// No terminfo entry: assume the least-capable terminal and let the
		// writer fall back to plain cursor addressing everywhere.
		return c
	}

	c.hasCup = ti.Has(terminfo.CursorAddress)
	c.hasHpa = ti.Has(terminfo.ColumnAddress)
	c.hasVpa = ti.Has(terminfo.RowAddress)
	c.hasEl = ti.Has(terminfo.ClrEol)
	c.hasEch = ti.Has(terminfo.EraseChars)
	c.hasSetaf = ti.Has(terminfo.SetAForeground)
	c.hasSetab = ti.Has(terminfo.SetABackground)
	c.hasSgr0 = ti.Has(terminfo.ExitAttributeMode)
	c.maxColors = ti.Nums[terminfo.MaxColors]

	c.syncUpdate = supportsSyncUpdate(termName, env)
	return c
}

// supportsSyncUpdate is a simplified stand-in for tmux's live DA2/
// XTGETTCAP probe: tmux actually asks the terminal at connect time whether
// it advertises the "Sync" extension and caches the answer per-client. We
// don't have a live round trip to the attached terminal at capability-
// detection time, so fall back to matching known-good TERM/TERM_PROGRAM
// values plus an explicit opt-out.
func supportsSyncUpdate(termName string, env map[string]string) bool {
	if env != nil {
		if v := env["TMUXCORE_NO_SYNC"]; v != "" {
			return false
		}
	}
	candidates := []string{termName}
	if env != nil {
		candidates = append(candidates, env["TERM"], env["TERM_PROGRAM"])
	}
	for _, c := range candidates {
		lc := strings.ToLower(c)
		switch {
		case strings.Contains(lc, "kitty"):
			return true
		case strings.Contains(lc, "wezterm"):
			return true
		case strings.Contains(lc, "iterm"):
			return true
		case strings.Contains(lc, "contour"):
			return true
		case strings.Contains(lc, "ghostty"):
			return true
		}
	}
	return false
}

// MaxColors reports how many colors the terminal claims to support (8 if
// unknown), used to decide how aggressively to downsample RGB cell colors.
func (c *Capabilities) MaxColors() int {
	if c.maxColors > 0 {
		return c.maxColors
	}
	return 8
}

// cup writes a cursor-address sequence for (row, col), preferring the
// terminal's own terminfo "cup" string and falling back to the ANSI CUP
// control sequence every terminal still understands.
func (c *Capabilities) cup(row, col int) string {
	if c.hasCup {
		return c.ti.Printf(terminfo.CursorAddress, row, col)
	}
	return fmt.Sprintf("\x1b[%d;%dH", row+1, col+1)
}

func (c *Capabilities) hpa(col int) string {
	if c.hasHpa {
		return c.ti.Printf(terminfo.ColumnAddress, col)
	}
	return fmt.Sprintf("\x1b[%dG", col+1)
}

func (c *Capabilities) vpa(row int) string {
	if c.hasVpa {
		return c.ti.Printf(terminfo.RowAddress, row)
	}
	return fmt.Sprintf("\x1b[%dd", row+1)
}

// el writes "erase to end of line" if the terminal has it, else reports
// false so the caller falls back to ech or literal spaces.
func (c *Capabilities) el() (string, bool) {
	if !c.hasEl {
		return "", false
	}
	return c.ti.Printf(terminfo.ClrEol), true
}

func (c *Capabilities) ech(n int) (string, bool) {
	if !c.hasEch {
		return "", false
	}
	return c.ti.Printf(terminfo.EraseChars, n), true
}

func (c *Capabilities) sgr0() string {
	if c.hasSgr0 {
		return c.ti.Printf(terminfo.ExitAttributeMode)
	}
	return "\x1b[0m"
}

func (c *Capabilities) setaf(idx int) (string, bool) {
	if !c.hasSetaf {
		return "", false
	}
	return c.ti.Printf(terminfo.SetAForeground, idx), true
}

func (c *Capabilities) setab(idx int) (string, bool) {
	if !c.hasSetab {
		return "", false
	}
	return c.ti.Printf(terminfo.SetABackground, idx), true
}

