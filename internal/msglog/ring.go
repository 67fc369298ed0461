// Package msglog implements the server's message_log (§5 "Global ordered
// sets ... message_log"): a bounded, in-memory record of status-line
// messages and structured log events, exposed to show-messages-style
// consumers. Adapted from the teacher's internal/sessionlog.TeeHandler,
// which tees slog records to a UI callback; here the tee target is this
// package's own ring instead of a frontend event bus, and overflowed
// entries can be handed to an archiver (internal/histdb) instead of
// simply being dropped.
package msglog

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Entry is one message_log row.
type Entry struct {
	Seq     uint64
	Time    int64 // unix nanos; stamped by the caller, not by this package
	Level   string
	Source  string // accumulated slog group name, or a command/hook name
	Message string
	Count   int // >1 when identical consecutive messages were coalesced
}

func digest(source, message string) uint64 {
	h := xxhash.New()
	h.WriteString(source)
	h.Write([]byte{0})
	h.WriteString(message)
	return h.Sum64()
}

// Ring is a fixed-capacity, append-only (from the reader's view) message
// log. Pushing past capacity evicts the oldest entry, optionally handing
// it to onEvict first so a caller can archive it before it's gone.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	nextSeq  uint64
	lastHash uint64
	onEvict  func(Entry)
}

// New creates a Ring holding at most capacity entries.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Ring{capacity: capacity}
}

// OnEvict registers a callback invoked with each entry dropped to make
// room for a new one (archiving it, e.g. into internal/histdb).
func (r *Ring) OnEvict(fn func(Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Push records a new message_log entry at time ts. A message identical to
// the immediately preceding one (same source + text) bumps that entry's
// Count instead of growing the ring, the way tmux's status line collapses
// a hook firing repeatedly in a tight loop into one line.
func (r *Ring) Push(ts int64, level, source, message string) {
	h := digest(source, message)
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.entries); n > 0 && h == r.lastHash {
		r.entries[n-1].Count++
		r.entries[n-1].Time = ts
		return
	}

	r.nextSeq++
	entry := Entry{Seq: r.nextSeq, Time: ts, Level: level, Source: source, Message: message, Count: 1}
	if len(r.entries) >= r.capacity {
		evicted := r.entries[0]
		r.entries = r.entries[1:]
		if r.onEvict != nil {
			r.onEvict(evicted)
		}
	}
	r.entries = append(r.entries, entry)
	r.lastHash = h
}

// All returns a copy of every entry currently retained, oldest first.
func (r *Ring) All() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear empties the ring (tmux's `clear-history`-adjacent `C-b :` message
// clear), without invoking onEvict for the discarded entries.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.lastHash = 0
}

// Len reports how many entries the ring currently holds.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
