package core

import (
	"fmt"
	"net"
	"time"
)

// Client is one connected peer as seen by the core layer.
// Mutable fields are only touched while the owning Hub's lock is held.
type Client struct {
	ID          int64
	SessionID   string
	Addr        string
	Name        string
	ConnectedAt time.Time

	conn     net.Conn
	slot     int
	occupied bool
	// failed is set once a write to conn has failed; the client is dropped
	// when the current critical section ends.
	failed bool
}

// DefaultName is the name a client gets on registration.
func (c *Client) DefaultName() string {
	return defaultName(c.ID)
}

// Conn returns the transport endpoint of the client.
func (c *Client) Conn() net.Conn {
	return c.conn
}

func defaultName(id int64) string {
	return fmt.Sprintf("%s%d", defaultNamePrefix, id)
}

// ClientInfo is a read-only copy of a Client taken under the hub lock.
type ClientInfo struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Name        string    `json:"name"`
	Addr        string    `json:"addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

func (c *Client) info() ClientInfo {
	return ClientInfo{
		ID:          c.ID,
		SessionID:   c.SessionID,
		Name:        c.Name,
		Addr:        c.Addr,
		ConnectedAt: c.ConnectedAt,
	}
}
