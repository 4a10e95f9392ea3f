package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	_ "modernc.org/sqlite"

	"github.com/deepnoodle-ai/unwind/exception"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS journal (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	command TEXT NOT NULL,
	reason INTEGER NOT NULL,
	kind INTEGER NOT NULL,
	message TEXT NOT NULL,
	at INTEGER NOT NULL
)`

// SQLite stores entries in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. The special path
// ":memory:" creates a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.validate(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO journal (id, command, reason, kind, message, at)
VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Command, int(e.Reason), int(e.Kind), e.Message, e.At.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, n int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, command, reason, kind, message, at
FROM journal
ORDER BY seq DESC
LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			id     string
			e      Entry
			reason int
			kind   int
			at     int64
		)
		if err := rows.Scan(&id, &e.Command, &reason, &kind, &e.Message, &at); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if e.ID, err = uuid.FromString(id); err != nil {
			return nil, fmt.Errorf("parse journal entry id: %w", err)
		}
		e.Reason = exception.Reason(reason)
		e.Kind = exception.ErrorKind(kind)
		e.At = time.UnixMilli(at).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
