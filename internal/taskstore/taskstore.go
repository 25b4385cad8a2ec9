// Package taskstore is a SQLite-backed persistence option for
// TaskRegistry snapshots, alongside the in-memory-only registry: every
// terminal (or otherwise notable) FSM state can be durably recorded and
// later replayed, so a restarted process can recover what happened to
// in-flight tasks.
package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nexus-agent/core/internal/task"
)

// Record is a durable snapshot of one task's state at a point in time.
type Record struct {
	ID          string
	State       string
	InputText   string
	Channel     task.ChannelCoordinate
	ErrorKind   string
	ErrorMsg    string
	FinalText   string
	UpdatedAt   time.Time
}

// Store persists task.FSM snapshots to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures the tasks table exists, matching the teacher's
// open-then-ping-then-migrate construction shape in
// NewCockroachStoreFromDSN.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("taskstore: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("taskstore: ping: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	input_text TEXT NOT NULL,
	channel_json TEXT NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	error_msg TEXT NOT NULL DEFAULT '',
	final_text TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("taskstore: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts fsm's current state as a Record.
func (s *Store) Save(ctx context.Context, fsm *task.FSM) error {
	ctxData := fsm.Context()
	channelJSON, err := json.Marshal(ctxData.Channel)
	if err != nil {
		return fmt.Errorf("taskstore: marshal channel: %w", err)
	}

	kind, msg := fsm.FailureInfo()
	finalText := ""
	if ctxData.FinalResult != nil {
		finalText = ctxData.FinalResult.Text
	}

	const stmt = `
INSERT INTO tasks (id, state, input_text, channel_json, error_kind, error_msg, final_text, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state = excluded.state,
	error_kind = excluded.error_kind,
	error_msg = excluded.error_msg,
	final_text = excluded.final_text,
	updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, stmt,
		fsm.ID(), string(fsm.State()), ctxData.InputText, string(channelJSON), kind, msg, finalText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("taskstore: save %s: %w", fsm.ID(), err)
	}
	return nil
}

// Get retrieves the Record for id, or an error if not found.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, state, input_text, channel_json, error_kind, error_msg, final_text, updated_at FROM tasks WHERE id = ?`, id)
	return scanRecord(row)
}

// ListAll returns every persisted Record, most recently updated first.
func (s *Store) ListAll(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state, input_text, channel_json, error_kind, error_msg, final_text, updated_at FROM tasks ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("taskstore: list: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var channelJSON string
	if err := row.Scan(&r.ID, &r.State, &r.InputText, &channelJSON, &r.ErrorKind, &r.ErrorMsg, &r.FinalText, &r.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("taskstore: not found")
		}
		return nil, fmt.Errorf("taskstore: scan: %w", err)
	}
	if err := json.Unmarshal([]byte(channelJSON), &r.Channel); err != nil {
		return nil, fmt.Errorf("taskstore: unmarshal channel: %w", err)
	}
	return &r, nil
}
