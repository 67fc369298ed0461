// Package histdb persists prompt history and archived message_log entries
// (§6 "prompt history at ~/.tmux_history, one line per entry per prompt
// type, bounded") to a SQLite database instead of a flat file, so a
// history that grows across many command-prompt/search-prompt entries and
// many overflowed status messages can be queried and bounded per type
// without rewriting the whole file on every append.
package histdb

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tmuxcore/tmuxd/internal/msglog"
)

// DB wraps the prompt-history/message-log archive.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("histdb: open %s: %w", path, err)
	}
	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("histdb: init schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS prompt_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt_type TEXT NOT NULL,
	entry TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompt_history_type ON prompt_history(prompt_type, id DESC);

CREATE TABLE IF NOT EXISTS archived_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	seq INTEGER NOT NULL,
	logged_at INTEGER NOT NULL,
	level TEXT NOT NULL,
	source TEXT NOT NULL,
	message TEXT NOT NULL,
	repeat_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_messages_seq ON archived_messages(seq);
`)
	return err
}

// AppendPrompt records one prompt-history entry for promptType (tmux's
// command-prompt vs. search prompt vs. ... history lists are kept
// separate), then trims that type down to limit entries, dropping the
// oldest first — the "bounded" half of §6's history contract.
func (db *DB) AppendPrompt(promptType, entry string, limit int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("histdb: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO prompt_history (prompt_type, entry, created_at) VALUES (?, ?, ?)`,
		promptType, entry, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("histdb: insert prompt entry: %w", err)
	}

	if limit > 0 {
		_, err = tx.Exec(`
			DELETE FROM prompt_history
			WHERE prompt_type = ? AND id NOT IN (
				SELECT id FROM prompt_history WHERE prompt_type = ? ORDER BY id DESC LIMIT ?
			)`, promptType, promptType, limit)
		if err != nil {
			return fmt.Errorf("histdb: trim prompt history: %w", err)
		}
	}

	return tx.Commit()
}

// PromptHistory returns up to limit of the most recent entries for
// promptType, oldest first (the order a prompt's up-arrow history expects).
func (db *DB) PromptHistory(promptType string, limit int) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT entry FROM prompt_history WHERE prompt_type = ? ORDER BY id DESC LIMIT ?`,
		promptType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("histdb: query prompt history: %w", err)
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("histdb: scan prompt entry: %w", err)
		}
		entries = append(entries, e)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, rows.Err()
}

// ArchivedMessage is one row evicted from internal/msglog's in-memory ring.
type ArchivedMessage struct {
	Seq         uint64
	LoggedAt    int64
	Level       string
	Source      string
	Message     string
	RepeatCount int
}

// ArchiveMessage persists a message_log entry evicted from the in-memory
// ring, meant to be wired as an msglog.Ring's OnEvict callback so overflow
// is archived rather than silently lost.
func (db *DB) ArchiveMessage(m ArchivedMessage) error {
	_, err := db.conn.Exec(
		`INSERT INTO archived_messages (seq, logged_at, level, source, message, repeat_count) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Seq, m.LoggedAt, m.Level, m.Source, m.Message, m.RepeatCount,
	)
	if err != nil {
		return fmt.Errorf("histdb: archive message: %w", err)
	}
	return nil
}

// MessageArchiver returns an msglog.Ring.OnEvict-compatible callback that
// archives every evicted entry into this database.
func (db *DB) MessageArchiver() func(msglog.Entry) {
	return func(e msglog.Entry) {
		if err := db.ArchiveMessage(ArchivedMessage{
			Seq: e.Seq, LoggedAt: e.Time, Level: e.Level,
			Source: e.Source, Message: e.Message, RepeatCount: e.Count,
		}); err != nil {
			// Archiving is best-effort: losing an overflowed log line to a
			// transient disk error shouldn't take down the render loop.
			slog.Warn("[histdb] archive message failed", "error", err)
		}
	}
}

// RecentArchivedMessages returns up to limit archived messages, most
// recent first.
func (db *DB) RecentArchivedMessages(limit int) ([]ArchivedMessage, error) {
	rows, err := db.conn.Query(
		`SELECT seq, logged_at, level, source, message, repeat_count FROM archived_messages ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("histdb: query archived messages: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		if err := rows.Scan(&m.Seq, &m.LoggedAt, &m.Level, &m.Source, &m.Message, &m.RepeatCount); err != nil {
			return nil, fmt.Errorf("histdb: scan archived message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
