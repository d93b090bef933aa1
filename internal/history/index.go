// Package history maintains a SQLite index of completed exchanges. The two
// text artifacts owned by the memory store remain the canonical record; the
// index is derived state that exists so the REPL can answer /recall and
// /stats without re-parsing the conversation log. Losing it loses nothing
// that matters.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kairovault/mantis/pkg/types"
)

// Index records and queries exchanges in a local SQLite database.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index database at path and applies the schema.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// The session is the only writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS exchanges (
			id         TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			user_input TEXT NOT NULL,
			reply      TEXT NOT NULL,
			directive  TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("history: apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}

// Record inserts one exchange. A missing ID or timestamp is filled in.
func (i *Index) Record(ctx context.Context, ex types.Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO exchanges (id, created_at, user_input, reply, directive)
		VALUES (?, ?, ?, ?, ?)
	`, ex.ID, ex.CreatedAt, ex.UserInput, ex.Reply, ex.Directive)
	if err != nil {
		return fmt.Errorf("history: record exchange: %w", err)
	}
	return nil
}

// Recent returns the n most recent exchanges, oldest first so they read in
// conversation order.
func (i *Index) Recent(ctx context.Context, n int) ([]types.Exchange, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT id, created_at, user_input, reply, directive
		FROM exchanges
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []types.Exchange
	for rows.Next() {
		var ex types.Exchange
		if err := rows.Scan(&ex.ID, &ex.CreatedAt, &ex.UserInput, &ex.Reply, &ex.Directive); err != nil {
			return nil, fmt.Errorf("history: scan exchange: %w", err)
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate exchanges: %w", err)
	}

	// Reverse newest-first into conversation order.
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}

// Stats summarizes the index contents.
type Stats struct {
	Exchanges  int       // total recorded exchanges
	Directives int       // exchanges that carried a command directive
	First      time.Time // zero when the index is empty
	Last       time.Time // zero when the index is empty
}

// Stats returns aggregate counts over all recorded exchanges.
func (i *Index) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var first, last sql.NullTime
	err := i.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN directive != '' THEN 1 END),
		       MIN(created_at),
		       MAX(created_at)
		FROM exchanges
	`).Scan(&s.Exchanges, &s.Directives, &first, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("history: query stats: %w", err)
	}
	if first.Valid {
		s.First = first.Time
	}
	if last.Valid {
		s.Last = last.Time
	}
	return s, nil
}
