package keys

import (
	"sync"
	"time"
)

// DefaultRepeatTimeout matches tmux's default repeat-time (500ms): the
// window after a repeatable binding fires during which the same key
// re-fires it without needing the prefix again.
const DefaultRepeatTimeout = 500 * time.Millisecond

// Cursor tracks one client's current key table and repeat state. A client
// starts in the root table; a binding with SwitchToTable moves the cursor
// into that table for exactly its next key (tmux's prefix-key behavior),
// while a Repeat binding keeps the cursor in place and starts/refreshes a
// timeout after which it reverts to root on its own.
type Cursor struct {
	reg  *Registry
	root *Table // held for the cursor's whole lifetime; one standing reference

	mu           sync.Mutex
	current      *Table
	repeating    bool
	repeatExpiry time.Time
	now          func() time.Time
}

// NewCursor creates a cursor starting in rootTable ("root" unless the
// caller has a different default table configured).
func NewCursor(reg *Registry, rootTable string) *Cursor {
	root := reg.Table(rootTable)
	return &Cursor{reg: reg, root: root, current: root, now: time.Now}
}

// Table returns the cursor's currently active table.
func (c *Cursor) Table() *Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AtRoot reports whether the cursor is currently in its root table (as
// opposed to mid-prefix, waiting on the next key of a multi-key binding).
func (c *Cursor) AtRoot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == c.root
}

// Close releases the cursor's standing reference on its root table.
func (c *Cursor) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != c.root {
		c.reg.Release(c.current)
	}
	c.reg.Release(c.root)
}

// Dispatch looks up code in the active table. On a match it applies the
// binding's table switch / repeat behavior and returns the binding; on a
// miss in a non-root table, it falls back to root once (tmux's
// "no binding in this table, try root" behavior) before returning
// ErrNoBinding.
func (c *Cursor) Dispatch(code Code) (*Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireRepeatLocked()

	b, ok := c.current.Lookup(code)
	if !ok && c.current != c.root {
		b, ok = c.root.Lookup(code)
	}
	if !ok {
		c.resetToRootLocked()
		return nil, ErrNoBinding
	}

	switch {
	case b.SwitchToTable != "":
		next := c.reg.Table(b.SwitchToTable)
		c.swapCurrentLocked(next)
		c.repeating = false
	case b.Repeat:
		c.repeating = true
		c.repeatExpiry = c.now().Add(DefaultRepeatTimeout)
	default:
		c.resetToRootLocked()
	}
	return b, nil
}

// swapCurrentLocked makes next the active table, taking next's reference
// (already acquired by the caller via reg.Table) and releasing the old
// table's reference unless it is the cursor's permanently-held root.
func (c *Cursor) swapCurrentLocked(next *Table) {
	old := c.current
	c.current = next
	if old != c.root {
		c.reg.Release(old)
	}
}

// expireRepeatLocked reverts to root if a repeat window has elapsed.
func (c *Cursor) expireRepeatLocked() {
	if c.repeating && c.now().After(c.repeatExpiry) {
		c.resetToRootLocked()
	}
}

func (c *Cursor) resetToRootLocked() {
	if c.current != c.root {
		c.reg.Release(c.current)
		c.current = c.root
	}
	c.repeating = false
}

// Reset forces the cursor back to its root table immediately, e.g. on
// Escape or losing focus.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetToRootLocked()
}
