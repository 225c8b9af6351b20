// Package store keeps per-session transcripts and notes for the backend.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session has no stored value.
var ErrNotFound = errors.New("not found")

// Memory opens a private in-memory database; used by tests and ephemeral
// servers.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	transcript TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
)`

// Session is the stored state of one client session.
type Session struct {
	ID         string
	Transcript string
	Notes      string
	UpdatedAt  time.Time
}

// Store is a SQLite backed session store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != Memory {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == Memory {
		// every connection to :memory: is a distinct database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTranscript stores the transcript of a session.
func (s *Store) SaveTranscript(ctx context.Context, sessionID, transcript string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, transcript, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET transcript = excluded.transcript, updated_at = excluded.updated_at
	`, sessionID, transcript, s.now().Unix())
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// SaveNotes stores the generated notes of a session.
func (s *Store) SaveNotes(ctx context.Context, sessionID, notes string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, notes, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET notes = excluded.notes, updated_at = excluded.updated_at
	`, sessionID, notes, s.now().Unix())
	if err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}

// Get returns the stored state of a session, or ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transcript, notes, updated_at
		FROM sessions
		WHERE id = ?
	`, sessionID)

	var sess Session
	var updatedAt int64
	if err := row.Scan(&sess.ID, &sess.Transcript, &sess.Notes, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	return &sess, nil
}

// Transcript returns the stored transcript, or ErrNotFound when empty.
func (s *Store) Transcript(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.Transcript == "" {
		return "", ErrNotFound
	}
	return sess.Transcript, nil
}

// Notes returns the stored notes, or ErrNotFound when empty.
func (s *Store) Notes(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.Notes == "" {
		return "", ErrNotFound
	}
	return sess.Notes, nil
}

// Prune deletes sessions not updated since before.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return n, nil
}
