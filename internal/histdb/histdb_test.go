package histdb

import (
	"path/filepath"
	"testing"

	"github.com/tmuxcore/tmuxd/internal/msglog"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendAndReadPromptHistoryOrdersOldestFirst(t *testing.T) {
	db := openTest(t)
	for _, entry := range []string{"first", "second", "third"} {
		if err := db.AppendPrompt("command", entry, 0); err != nil {
			t.Fatalf("AppendPrompt() error = %v", err)
		}
	}
	got, err := db.PromptHistory("command", 10)
	if err != nil {
		t.Fatalf("PromptHistory() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("PromptHistory() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PromptHistory()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAppendPromptTrimsPastLimit(t *testing.T) {
	db := openTest(t)
	for _, entry := range []string{"a", "b", "c", "d"} {
		if err := db.AppendPrompt("search", entry, 2); err != nil {
			t.Fatalf("AppendPrompt() error = %v", err)
		}
	}
	got, err := db.PromptHistory("search", 10)
	if err != nil {
		t.Fatalf("PromptHistory() error = %v", err)
	}
	want := []string{"c", "d"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("PromptHistory() = %v, want %v", got, want)
	}
}

func TestPromptHistoryTypesAreIndependent(t *testing.T) {
	db := openTest(t)
	db.AppendPrompt("command", "cmd-entry", 0)
	db.AppendPrompt("search", "search-entry", 0)

	cmd, _ := db.PromptHistory("command", 10)
	search, _ := db.PromptHistory("search", 10)
	if len(cmd) != 1 || cmd[0] != "cmd-entry" {
		t.Fatalf("command history = %v, want [cmd-entry]", cmd)
	}
	if len(search) != 1 || search[0] != "search-entry" {
		t.Fatalf("search history = %v, want [search-entry]", search)
	}
}

func TestMessageArchiverPersistsEvictedEntries(t *testing.T) {
	db := openTest(t)
	ring := msglog.New(1)
	ring.OnEvict(db.MessageArchiver())

	ring.Push(1, "WARN", "server", "one")
	ring.Push(2, "WARN", "server", "two")

	archived, err := db.RecentArchivedMessages(10)
	if err != nil {
		t.Fatalf("RecentArchivedMessages() error = %v", err)
	}
	if len(archived) != 1 || archived[0].Message != "one" {
		t.Fatalf("RecentArchivedMessages() = %+v, want [one]", archived)
	}
}
