package kernel

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// HistoryEntry is one executed cell, as stored by a HistoryStore.
type HistoryEntry struct {
	Session int
	Line    int
	Input   string
	Output  string
}

// HistoryStore backs history_request/history_reply. The core ships two
// implementations: an in-memory ring buffer (the default, zero
// configuration) and a Postgres-backed store for front-ends that expect
// history to survive a kernel restart.
type HistoryStore interface {
	Record(session, line int, input, output string)
	Recent(n int) []HistoryEntry
}

// ringHistoryStore is the default HistoryStore: bounded in-memory
// storage, no external dependency.
type ringHistoryStore struct {
	mu      sync.Mutex
	entries []HistoryEntry
	limit   int
}

// NewRingHistoryStore returns a HistoryStore that keeps at most limit
// entries, evicting the oldest first.
func NewRingHistoryStore(limit int) HistoryStore {
	return &ringHistoryStore{limit: limit}
}

func (r *ringHistoryStore) Record(session, line int, input, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, HistoryEntry{Session: session, Line: line, Input: input, Output: output})
	if len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
}

func (r *ringHistoryStore) Recent(n int) []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]HistoryEntry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

// sqlHistoryStore persists history through database/sql with the pgx
// stdlib driver, the same driver user code reaches through the sqlOpen
// builtin. Enabled with --history-dsn.
type sqlHistoryStore struct {
	db *sql.DB
}

// NewSQLHistoryStore opens dsn with the pgx driver and ensures the
// history table exists.
func NewSQLHistoryStore(ctx context.Context, dsn string) (HistoryStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("kernel: open history store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kernel: ping history store: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS kernel_history (
		session INTEGER NOT NULL,
		line INTEGER NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		PRIMARY KEY (session, line)
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kernel: create history table: %w", err)
	}
	return &sqlHistoryStore{db: db}, nil
}

func (s *sqlHistoryStore) Record(session, line int, input, output string) {
	_, _ = s.db.Exec(
		`INSERT INTO kernel_history (session, line, input, output) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session, line) DO UPDATE SET input = EXCLUDED.input, output = EXCLUDED.output`,
		session, line, input, output,
	)
}

func (s *sqlHistoryStore) Recent(n int) []HistoryEntry {
	rows, err := s.db.Query(
		`SELECT session, line, input, output FROM kernel_history ORDER BY session DESC, line DESC LIMIT $1`, n,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Session, &e.Line, &e.Input, &e.Output); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
