package core

import (
	"net"
	"time"

	"github.com/vovakirdan/relaychat/internal/utils"
)

// Registry is a fixed number of client slots plus the id counter.
// It does no locking of its own: the Hub serializes every call.
type Registry struct {
	slots  []*Client
	count  int
	nextID int64
}

// NewRegistry creates a registry with capacity slots.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	return &Registry{slots: make([]*Client, capacity)}
}

// Allocate occupies the first free slot for a new connection.
// Ids come from a counter that only moves forward, so they are never reused.
func (r *Registry) Allocate(addr string, conn net.Conn) (*Client, error) {
	slot := -1
	for i, c := range r.slots {
		if c == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, ErrCapacityExceeded
	}

	id := r.nextID
	r.nextID++

	c := &Client{
		ID:          id,
		SessionID:   utils.NewID(),
		Addr:        addr,
		Name:        defaultName(id),
		ConnectedAt: time.Now().UTC(),
		conn:        conn,
		slot:        slot,
		occupied:    true,
	}
	r.slots[slot] = c
	r.count++
	return c, nil
}

// Release frees the slot held by c. Returns false if c was not occupied.
func (r *Registry) Release(c *Client) bool {
	if !r.IsOccupied(c) {
		return false
	}
	r.slots[c.slot] = nil
	c.occupied = false
	r.count--
	return true
}

// IsOccupied reports whether c currently holds a slot.
func (r *Registry) IsOccupied(c *Client) bool {
	if c == nil || !c.occupied || c.slot < 0 || c.slot >= len(r.slots) {
		return false
	}
	return r.slots[c.slot] == c
}

// ForEach calls fn for every occupied client in slot order.
func (r *Registry) ForEach(fn func(*Client)) {
	for _, c := range r.slots {
		if c != nil {
			fn(c)
		}
	}
}

// FindByName returns the occupied client named name, or nil.
func (r *Registry) FindByName(name string) *Client {
	for _, c := range r.slots {
		if c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// Len returns the number of occupied slots.
func (r *Registry) Len() int {
	return r.count
}

// Cap returns the number of slots.
func (r *Registry) Cap() int {
	return len(r.slots)
}

// Snapshot copies every occupied client in slot order.
func (r *Registry) Snapshot() []ClientInfo {
	out := make([]ClientInfo, 0, r.count)
	r.ForEach(func(c *Client) {
		out = append(out, c.info())
	})
	return out
}

// Clear frees all slots and returns the clients that held them.
func (r *Registry) Clear() []*Client {
	released := make([]*Client, 0, r.count)
	for i, c := range r.slots {
		if c == nil {
			continue
		}
		c.occupied = false
		r.slots[i] = nil
		released = append(released, c)
	}
	r.count = 0
	return released
}
