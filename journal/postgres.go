package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deepnoodle-ai/unwind/exception"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS unwind_journal (
	seq BIGSERIAL PRIMARY KEY,
	id UUID NOT NULL UNIQUE,
	command TEXT NOT NULL,
	reason INTEGER NOT NULL,
	kind INTEGER NOT NULL,
	message TEXT NOT NULL,
	at TIMESTAMPTZ NOT NULL
)`

// Postgres stores entries in a PostgreSQL table.
type Postgres struct {
	conn *pgx.Conn
}

// OpenPostgres connects using connString and creates the journal table if
// needed.
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &Postgres{conn: conn}, nil
}

func (p *Postgres) Append(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := p.conn.Exec(ctx, `
INSERT INTO unwind_journal (id, command, reason, kind, message, at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID.String(), e.Command, int(e.Reason), int(e.Kind), e.Message, e.At)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	rows, err := p.conn.Query(ctx, `
SELECT id::text, command, reason, kind, message, at
FROM unwind_journal
ORDER BY seq DESC
LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			id     string
			e      Entry
			reason int32
			kind   int32
		)
		if err := rows.Scan(&id, &e.Command, &reason, &kind, &e.Message, &e.At); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if e.ID, err = uuid.FromString(id); err != nil {
			return nil, fmt.Errorf("parse journal entry id: %w", err)
		}
		e.Reason = exception.Reason(reason)
		e.Kind = exception.ErrorKind(kind)
		e.At = e.At.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return out, nil
}

// Close closes the connection.
func (p *Postgres) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close(context.Background())
}
