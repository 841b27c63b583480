package store

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session id is unknown to the journal.
var ErrSessionNotFound = errors.New("session not found")

// Session is one connection's stay in the registry.
type Session struct {
	SessionID      string
	ClientID       int64
	Name           string
	Addr           string
	ConnectedAt    time.Time
	DisconnectedAt *time.Time
	Reason         string
}

// Rename records a display name change within a session.
type Rename struct {
	SessionID string
	OldName   string
	NewName   string
	At        time.Time
}

// Journal persists session lifecycle events. Chat text is never stored.
type Journal interface {
	// OpenSession records a newly registered client.
	OpenSession(ctx context.Context, s Session) error
	// CloseSession stamps the departure of a session with its final name.
	CloseSession(ctx context.Context, sessionID, finalName string, at time.Time, reason string) error
	// RecordRename appends a name change and updates the session's name.
	RecordRename(ctx context.Context, r Rename) error
	// ListSessions returns the most recent sessions first.
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	// ListRenames returns the name changes of one session in order.
	ListRenames(ctx context.Context, sessionID string) ([]Rename, error)

	Close() error
}
