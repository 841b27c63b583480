package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/relaychat/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id      TEXT PRIMARY KEY,
	client_id       INTEGER NOT NULL,
	name            TEXT NOT NULL,
	addr            TEXT NOT NULL,
	connected_at    DATETIME NOT NULL,
	disconnected_at DATETIME,
	reason          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sessions_connected_at ON sessions(connected_at);

CREATE TABLE IF NOT EXISTS renames (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(session_id),
	old_name   TEXT NOT NULL,
	new_name   TEXT NOT NULL,
	renamed_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_renames_session ON renames(session_id);
`

// Journal implements store.Journal on SQLite.
type Journal struct {
	db *sql.DB
}

var _ store.Journal = (*Journal)(nil)

// Migrate creates the journal tables when they do not exist yet.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*Journal, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup opens the database at dbPath and runs setup before first use.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// OpenSession inserts a new session row.
func (j *Journal) OpenSession(ctx context.Context, s store.Session) error {
	query := `
		INSERT INTO sessions (session_id, client_id, name, addr, connected_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := j.db.ExecContext(ctx, query, s.SessionID, s.ClientID, s.Name, s.Addr, s.ConnectedAt.UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// CloseSession stamps the departure time, reason and final name.
func (j *Journal) CloseSession(ctx context.Context, sessionID, finalName string, at time.Time, reason string) error {
	query := `
		UPDATE sessions
		SET disconnected_at = ?, reason = ?, name = ?
		WHERE session_id = ?
	`
	res, err := j.db.ExecContext(ctx, query, at.UTC(), reason, finalName, sessionID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return expectOneRow(res, sessionID)
}

// RecordRename appends to renames and updates the session's current name.
func (j *Journal) RecordRename(ctx context.Context, r store.Rename) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE sessions SET name = ? WHERE session_id = ?`, r.NewName, r.SessionID)
	if err != nil {
		return fmt.Errorf("update session name: %w", err)
	}
	if err := expectOneRow(res, r.SessionID); err != nil {
		return err
	}

	query := `
		INSERT INTO renames (session_id, old_name, new_name, renamed_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, r.SessionID, r.OldName, r.NewName, r.At.UTC()); err != nil {
		return fmt.Errorf("insert rename: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first. A non-positive
// limit returns every session.
func (j *Journal) ListSessions(ctx context.Context, limit int) ([]store.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT session_id, client_id, name, addr, connected_at, disconnected_at, reason
		FROM sessions
		ORDER BY connected_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []store.Session
	for rows.Next() {
		var s store.Session
		var disconnectedAt sql.NullTime
		if err := rows.Scan(&s.SessionID, &s.ClientID, &s.Name, &s.Addr, &s.ConnectedAt, &disconnectedAt, &s.Reason); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if disconnectedAt.Valid {
			t := disconnectedAt.Time
			s.DisconnectedAt = &t
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// ListRenames returns the renames of one session, oldest first.
func (j *Journal) ListRenames(ctx context.Context, sessionID string) ([]store.Rename, error) {
	query := `
		SELECT session_id, old_name, new_name, renamed_at
		FROM renames
		WHERE session_id = ?
		ORDER BY id
	`
	rows, err := j.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query renames: %w", err)
	}
	defer rows.Close()

	var renames []store.Rename
	for rows.Next() {
		var r store.Rename
		if err := rows.Scan(&r.SessionID, &r.OldName, &r.NewName, &r.At); err != nil {
			return nil, fmt.Errorf("scan rename: %w", err)
		}
		renames = append(renames, r)
	}

	return renames, rows.Err()
}

func expectOneRow(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, store.ErrSessionNotFound)
	}
	return nil
}
