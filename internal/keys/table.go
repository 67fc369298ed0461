package keys

import (
	"fmt"
	"sync"
)

// Binding is one key table entry: the command it runs, whether it
// participates in REPEAT chaining, and an optional table switch.
type Binding struct {
	Command    string
	Args       []string
	Repeat     bool
	SwitchToTable string // e.g. the prefix key binds to switch into "prefix"
}

// Table is a named, reference-counted set of key bindings (tmux's
// key-table: "root", "prefix", "copy-mode", or any user-defined table
// reached via `switch-client -T`).
type Table struct {
	Name string

	mu       sync.RWMutex
	bindings map[Code]*Binding
	refs     int
}

func newTable(name string) *Table {
	return &Table{Name: name, bindings: map[Code]*Binding{}}
}

// Bind installs or replaces the binding for code.
func (t *Table) Bind(code Code, b *Binding) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings[code] = b
}

// Unbind removes the binding for code, if any.
func (t *Table) Unbind(code Code) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.bindings, code)
}

// Lookup returns the binding for code, preferring an exact mouse/keyboard
// namespace match (masking never lets a keyboard binding answer a mouse
// key, or vice versa, even though they share the same Code space below the
// mouse bit).
func (t *Table) Lookup(code Code) (*Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.bindings[code]
	return b, ok
}

// Registry owns every named key table, reference-counted so a table used
// by more than one client's cursor is only torn down once nothing
// references it.
type Registry struct {
	mu     sync.Mutex
	tables map[string]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: map[string]*Table{}}
}

// Table returns (creating if needed) the named table and takes a reference
// on behalf of the caller; callers must call Release when done with it.
func (r *Registry) Table(name string) *Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[name]
	if !ok {
		t = newTable(name)
		r.tables[name] = t
	}
	t.refs++
	return t
}

// Release drops a reference taken by Table, deleting the table once its
// count reaches zero so renamed/abandoned tables don't leak.
func (r *Registry) Release(t *Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.refs--
	if t.refs <= 0 {
		delete(r.tables, t.Name)
	}
}

// Names returns every currently registered table name.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tables))
	for name := range r.tables {
		out = append(out, name)
	}
	return out
}

var errNoBinding = fmt.Errorf("keys: no binding")

// ErrNoBinding is returned by Cursor.Dispatch when a key has no binding in
// the active table and the table has no parent to fall back to.
var ErrNoBinding = errNoBinding
