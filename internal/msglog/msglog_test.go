package msglog

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestPushCoalescesRepeatedMessages(t *testing.T) {
	r := New(10)
	r.Push(1, "INFO", "server", "client attached")
	r.Push(2, "INFO", "server", "client attached")
	r.Push(3, "INFO", "server", "client attached")

	all := r.All()
	if len(all) != 1 {
		t.Fatalf("All() = %d entries, want 1 coalesced entry", len(all))
	}
	if all[0].Count != 3 {
		t.Fatalf("Count = %d, want 3", all[0].Count)
	}
}

func TestPushEvictsOldestPastCapacity(t *testing.T) {
	r := New(2)
	var evicted []Entry
	r.OnEvict(func(e Entry) { evicted = append(evicted, e) })

	r.Push(1, "INFO", "a", "one")
	r.Push(2, "INFO", "a", "two")
	r.Push(3, "INFO", "a", "three")

	if len(evicted) != 1 || evicted[0].Message != "one" {
		t.Fatalf("evicted = %+v, want [one]", evicted)
	}
	all := r.All()
	if len(all) != 2 || all[0].Message != "two" || all[1].Message != "three" {
		t.Fatalf("All() = %+v, want [two three]", all)
	}
}

func TestClearEmptiesRingWithoutEviction(t *testing.T) {
	r := New(10)
	evictCount := 0
	r.OnEvict(func(Entry) { evictCount++ })
	r.Push(1, "INFO", "a", "one")
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", r.Len())
	}
	if evictCount != 0 {
		t.Fatalf("evictCount = %d, want 0 (Clear should not call onEvict)", evictCount)
	}
}

func TestHandlerFeedsRingAboveMinLevel(t *testing.T) {
	r := New(10)
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	h := NewHandler(base, r, slog.LevelWarn)
	logger := slog.New(h)

	logger.Info("ignored, below threshold")
	logger.Warn("recorded")

	all := r.All()
	if len(all) != 1 || all[0].Message != "recorded" {
		t.Fatalf("All() = %+v, want a single entry for the Warn record", all)
	}
}

func TestHandlerWithGroupAccumulatesDotted(t *testing.T) {
	r := New(10)
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	h := NewHandler(base, r, slog.LevelInfo).WithGroup("server").WithGroup("pane")
	slog.New(h).Info("hello")

	all := r.All()
	if len(all) != 1 || all[0].Source != "server.pane" {
		t.Fatalf("All() = %+v, want Source = server.pane", all)
	}
}
