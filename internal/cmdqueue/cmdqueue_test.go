package cmdqueue

import "testing"

func TestRunNextProcessesInOrder(t *testing.T) {
	q := New("client1")
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		q.Enqueue(&Item{Name: name, Run: func(*Context) (Result, error) {
			order = append(order, name)
			return ResultNormal, nil
		}})
	}
	for q.RunNext() {
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v, want [a b c]", order)
	}
}

func TestBeforeAfterHooksFire(t *testing.T) {
	q := New("client1")
	var events []string
	q.Before("set-option", func(ctx *Context, name string) { events = append(events, "before:"+name) })
	q.After("set-option", func(ctx *Context, name string) { events = append(events, "after:"+name) })
	q.Enqueue(&Item{Name: "set-option", Run: func(*Context) (Result, error) {
		events = append(events, "run")
		return ResultNormal, nil
	}})
	q.RunNext()
	want := []string{"before:set-option", "run", "after:set-option"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestNoHooksSkipsHookPair(t *testing.T) {
	q := New("client1")
	fired := false
	q.Before("set-hook", func(ctx *Context, name string) { fired = true })
	q.Enqueue(&Item{Name: "set-hook", NoHooks: true, Run: func(*Context) (Result, error) {
		return ResultNormal, nil
	}})
	q.RunNext()
	if fired {
		t.Fatalf("before hook fired despite NoHooks")
	}
}

func TestResultWaitBlocksQueueUntilContinue(t *testing.T) {
	q := New("client1")
	var waitItem *Item
	q.Enqueue(&Item{Name: "wait-cmd", Run: func(ctx *Context) (Result, error) {
		waitItem = ctx.Item
		return ResultWait, nil
	}})
	ran := false
	q.Enqueue(&Item{Name: "after-wait", Run: func(*Context) (Result, error) {
		ran = true
		return ResultNormal, nil
	}})

	q.RunNext()
	if q.RunNext() {
		t.Fatalf("RunNext() should not advance while an item is waiting")
	}
	if ran {
		t.Fatalf("second item ran before Continue")
	}

	q.Continue(waitItem)
	if !q.RunNext() {
		t.Fatalf("RunNext() should advance after Continue")
	}
	if !ran {
		t.Fatalf("second item did not run after Continue")
	}
}

func TestResultErrorInvokesOnError(t *testing.T) {
	q := New("client1")
	var gotErr error
	q.OnError(func(item *Item, err error) { gotErr = err })
	sentinel := errTest{}
	q.Enqueue(&Item{Name: "bad", Run: func(*Context) (Result, error) {
		return ResultError, sentinel
	}})
	q.RunNext()
	if gotErr != sentinel {
		t.Fatalf("gotErr = %v, want %v", gotErr, sentinel)
	}
}

func TestInsertAfterRunsBeforeRestOfQueue(t *testing.T) {
	q := New("client1")
	var order []string
	first := &Item{Name: "first", Run: func(ctx *Context) (Result, error) {
		order = append(order, "first")
		q.InsertAfter(ctx.Item, &Item{Name: "inserted", Run: func(*Context) (Result, error) {
			order = append(order, "inserted")
			return ResultNormal, nil
		}})
		return ResultNormal, nil
	}}
	q.Enqueue(first)
	q.Enqueue(&Item{Name: "last", Run: func(*Context) (Result, error) {
		order = append(order, "last")
		return ResultNormal, nil
	}})

	for q.RunNext() {
	}
	want := []string{"first", "inserted", "last"}
	for i, w := range want {
		if i >= len(order) || order[i] != w {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestResultStopHaltsQueue(t *testing.T) {
	q := New("client1")
	q.Enqueue(&Item{Name: "stop", Run: func(*Context) (Result, error) { return ResultStop, nil }})
	ran := false
	q.Enqueue(&Item{Name: "never", Run: func(*Context) (Result, error) {
		ran = true
		return ResultNormal, nil
	}})
	for q.RunNext() {
	}
	if ran {
		t.Fatalf("item ran after ResultStop")
	}
	if !q.Stopped() {
		t.Fatalf("Stopped() = false, want true")
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
