// Package journal records command failures caught by the outermost catcher
// so they can be listed later.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"github.com/deepnoodle-ai/unwind/exception"
)

// Entry is one caught failure.
type Entry struct {
	ID      uuid.UUID           `json:"id"`
	Command string              `json:"command"`
	Reason  exception.Reason    `json:"reason"`
	Kind    exception.ErrorKind `json:"kind"`
	Message string              `json:"message,omitempty"`
	At      time.Time           `json:"at"`
}

// NewEntry builds an entry for a failure of command, stamped with the
// current time.
func NewEntry(id uuid.UUID, command string, rec exception.Record) Entry {
	return Entry{
		ID:      id,
		Command: command,
		Reason:  rec.Reason,
		Kind:    rec.Kind,
		Message: rec.Message,
		At:      time.Now().UTC(),
	}
}

// Record returns the abort the entry describes.
func (e Entry) Record() exception.Record {
	return exception.Record{Reason: e.Reason, Kind: e.Kind, Message: e.Message}
}

func (e Entry) validate() error {
	if e.ID == uuid.Nil {
		return errors.New("entry id is required")
	}
	if !e.Reason.IsAbort() {
		return fmt.Errorf("entry reason %s is not an abort", e.Reason)
	}
	return nil
}

// Store persists entries.
type Store interface {
	// Append adds an entry.
	Append(ctx context.Context, e Entry) error
	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// Close releases the store.
	Close() error
}

// Open returns the store described by dsn:
//
//	memory:              in-process, lost on exit
//	sqlite:<path>        SQLite database file (sqlite::memory: for a private one)
//	postgres://...       PostgreSQL connection string
//
// An empty dsn is the same as "memory:".
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || dsn == "memory:":
		return NewMemory(0), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		s, err := OpenSQLite(strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		p, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported journal dsn %q", dsn)
	}
}
