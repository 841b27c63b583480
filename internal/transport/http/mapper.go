package http

import (
	"time"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/store"
)

// ClientResponse represents a connected client in API responses.
type ClientResponse struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"session_id"`
	Name        string `json:"name"`
	Addr        string `json:"addr"`
	ConnectedAt string `json:"connected_at"`
}

// SessionResponse represents a journaled session in API responses.
type SessionResponse struct {
	SessionID      string  `json:"session_id"`
	ClientID       int64   `json:"client_id"`
	Name           string  `json:"name"`
	Addr           string  `json:"addr"`
	ConnectedAt    string  `json:"connected_at"`
	DisconnectedAt *string `json:"disconnected_at,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

func clientToResponse(info core.ClientInfo) ClientResponse {
	return ClientResponse{
		ID:          info.ID,
		SessionID:   info.SessionID,
		Name:        info.Name,
		Addr:        info.Addr,
		ConnectedAt: info.ConnectedAt.Format(time.RFC3339),
	}
}

func sessionToResponse(s store.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:   s.SessionID,
		ClientID:    s.ClientID,
		Name:        s.Name,
		Addr:        s.Addr,
		ConnectedAt: s.ConnectedAt.Format(time.RFC3339),
		Reason:      s.Reason,
	}
	if s.DisconnectedAt != nil {
		at := s.DisconnectedAt.Format(time.RFC3339)
		resp.DisconnectedAt = &at
	}
	return resp
}

func renameToResponse(r store.Rename) RenameResponse {
	return RenameResponse{
		OldName: r.OldName,
		NewName: r.NewName,
		At:      r.At.Format(time.RFC3339),
	}
}
