// Package cmdqueue implements the per-client command queue (§4.H): a FIFO
// of commands run one at a time by the server's single-threaded event loop,
// each producing a Result, with before/after hooks and a NOHOOKS flag to
// break hook-recursion cycles.
package cmdqueue

import (
	"container/list"
	"sync"
)

// Result is a command's outcome, mirroring tmux's cmd_retval.
type Result uint8

const (
	// ResultNormal: the command completed; continue with the next item.
	ResultNormal Result = iota
	// ResultError: the command failed; the error is passed to OnError, the
	// after-hook is skipped, and the queue goes on to the next item.
	ResultError
	// ResultWait: the command is asynchronous and will call Continue later
	// (e.g. it's waiting on a pane's output or a nested command); the queue
	// pauses this client until Continue is invoked.
	ResultWait
	// ResultStop: stop processing this client's queue entirely (detach).
	ResultStop
)

func (r Result) String() string {
	switch r {
	case ResultNormal:
		return "normal"
	case ResultError:
		return "error"
	case ResultWait:
		return "wait"
	case ResultStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Context is passed to a command's Run function, giving it access to the
// queue it is running on (for Continue/InsertAfter) and which client
// submitted it.
type Context struct {
	Queue    *Queue
	ClientID string
	Item     *Item
}

// Item is one queued command.
type Item struct {
	Name    string
	Run     func(*Context) (Result, error)
	NoHooks bool // skip before/after hooks for this item (hook-recursion guard)

	elem *list.Element
	done chan struct{}
}

// HookFunc observes a command name either before or after it runs. Before
// hooks may themselves enqueue commands (e.g. tmux's `set-hook`); those
// enqueued items are marked NoHooks to stop the before/after hook pair from
// re-triggering itself indefinitely.
type HookFunc func(ctx *Context, name string)

// Queue is one client's FIFO of commands.
type Queue struct {
	mu       sync.Mutex
	items    *list.List
	waiting  *Item // the item currently blocked on ResultWait, if any
	stopped  bool
	clientID string

	before map[string][]HookFunc
	after  map[string][]HookFunc

	onError func(item *Item, err error)
}

// New creates an empty queue for clientID.
func New(clientID string) *Queue {
	return &Queue{
		items:    list.New(),
		clientID: clientID,
		before:   map[string][]HookFunc{},
		after:    map[string][]HookFunc{},
	}
}

// OnError installs a callback invoked whenever a command returns ResultError.
func (q *Queue) OnError(fn func(item *Item, err error)) {
	q.mu.Lock()
	q.onError = fn
	q.mu.Unlock()
}

// Before registers a hook that runs immediately before any command named
// name is run (tmux's before-hooks, e.g. a `set-hook -g` target).
func (q *Queue) Before(name string, fn HookFunc) {
	q.mu.Lock()
	q.before[name] = append(q.before[name], fn)
	q.mu.Unlock()
}

// After registers a hook that runs immediately after command name completes
// with ResultNormal.
func (q *Queue) After(name string, fn HookFunc) {
	q.mu.Lock()
	q.after[name] = append(q.after[name], fn)
	q.mu.Unlock()
}

// Enqueue appends item to the end of the queue.
func (q *Queue) Enqueue(item *Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item.elem = q.items.PushBack(item)
}

// InsertAfter inserts newItem immediately after after in the queue
// (cmdq_insert_after), used by commands that continue as a follow-up step
// (e.g. `if-shell` queuing its branch command to run next, ahead of
// whatever else was already queued).
func (q *Queue) InsertAfter(after *Item, newItem *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if after.elem == nil {
		// after has already been dequeued (it is the item currently running,
		// the common case for a command that queues its own continuation) —
		// the right place for its follow-up is the front of what remains.
		newItem.elem = q.items.PushFront(newItem)
		return nil
	}
	newItem.elem = q.items.InsertAfter(newItem, after.elem)
	return nil
}

// Pending reports how many items are queued (including one in-flight wait).
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.items.Len()
	if q.waiting != nil {
		n++
	}
	return n
}

// Stopped reports whether a prior item returned ResultStop.
func (q *Queue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// RunNext pops and runs the next item, firing before/after hooks unless the
// item is marked NoHooks. Returns false when the queue is empty, stopped,
// or blocked on a ResultWait item.
func (q *Queue) RunNext() bool {
	q.mu.Lock()
	if q.stopped || q.waiting != nil {
		q.mu.Unlock()
		return false
	}
	front := q.items.Front()
	if front == nil {
		q.mu.Unlock()
		return false
	}
	item := front.Value.(*Item)
	q.items.Remove(front)
	item.elem = nil
	q.mu.Unlock()

	q.runItem(item)
	return true
}

func (q *Queue) runItem(item *Item) {
	ctx := &Context{Queue: q, ClientID: q.clientID, Item: item}

	if !item.NoHooks {
		for _, h := range q.hooksFor(q.before, item.Name) {
			h(ctx, item.Name)
		}
	}

	result, err := item.Run(ctx)

	switch result {
	case ResultWait:
		item.done = make(chan struct{})
		q.mu.Lock()
		q.waiting = item
		q.mu.Unlock()
		return
	case ResultError:
		q.mu.Lock()
		cb := q.onError
		q.mu.Unlock()
		if cb != nil {
			cb(item, err)
		}
		return
	case ResultStop:
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		return
	}

	if !item.NoHooks {
		for _, h := range q.hooksFor(q.after, item.Name) {
			h(ctx, item.Name)
		}
	}
}

func (q *Queue) hooksFor(table map[string][]HookFunc, name string) []HookFunc {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]HookFunc(nil), table[name]...)
}

// Continue resumes an item that previously returned ResultWait, running its
// after-hooks (unless NoHooks) and unblocking the queue for RunNext.
func (q *Queue) Continue(item *Item) {
	q.mu.Lock()
	if q.waiting != item {
		q.mu.Unlock()
		return
	}
	q.waiting = nil
	q.mu.Unlock()

	if !item.NoHooks {
		ctx := &Context{Queue: q, ClientID: q.clientID, Item: item}
		for _, h := range q.hooksFor(q.after, item.Name) {
			h(ctx, item.Name)
		}
	}
	if item.done != nil {
		close(item.done)
	}
}
