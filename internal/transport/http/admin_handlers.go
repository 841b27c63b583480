package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/store"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 1000
)

// AdminHandlers provides read-only views of the relay.
type AdminHandlers struct {
	hub     *core.Hub
	journal store.Journal
	log     *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance. journal may be nil.
func NewAdminHandlers(hub *core.Hub, journal store.Journal, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		hub:     hub,
		journal: journal,
		log:     logger,
	}
}

// ClientsResponse lists the connected clients.
type ClientsResponse struct {
	Count   int              `json:"count"`
	Clients []ClientResponse `json:"clients"`
}

// SessionsResponse lists journaled sessions.
type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// RenameResponse represents one journaled name change.
type RenameResponse struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
	At      string `json:"at"`
}

// ListClients returns the registry snapshot in slot order.
// GET /clients
func (h *AdminHandlers) ListClients(c *gin.Context) {
	snapshot := h.hub.Snapshot()

	resp := ClientsResponse{Count: len(snapshot), Clients: make([]ClientResponse, 0, len(snapshot))}
	for _, info := range snapshot {
		resp.Clients = append(resp.Clients, clientToResponse(info))
	}

	c.JSON(http.StatusOK, resp)
}

// ListSessions returns the most recent journaled sessions.
// GET /sessions?limit=n
func (h *AdminHandlers) ListSessions(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "journal disabled"})
		return
	}

	limit := defaultSessionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxSessionLimit)
	}

	sessions, err := h.journal.ListSessions(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := SessionsResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, sessionToResponse(s))
	}

	c.JSON(http.StatusOK, resp)
}

// ListRenames returns the name changes of one session.
// GET /sessions/:id/renames
func (h *AdminHandlers) ListRenames(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "journal disabled"})
		return
	}

	renames, err := h.journal.ListRenames(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error().Err(err).Str("session_id", c.Param("id")).Msg("failed to list renames")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]RenameResponse, 0, len(renames))
	for _, r := range renames {
		resp = append(resp, renameToResponse(r))
	}

	c.JSON(http.StatusOK, resp)
}
