package http

import (
	"net"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// WSHandler upgrades HTTP connections and runs the line protocol over them.
// Each text message the server writes carries exactly one line; inbound
// messages are read as a byte stream, so a line may span several messages.
type WSHandler struct {
	conns ConnServer
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(conns ConnServer, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{conns: conns, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	ctx := r.Context()
	nc := websocket.NetConn(ctx, conn, websocket.MessageText)
	wrapped := &wsConn{Conn: nc, remote: wsAddr(r.RemoteAddr)}

	if err := h.conns.ServeConn(ctx, wrapped); err != nil {
		h.log.Debug().Err(err).Str("addr", r.RemoteAddr).Msg("ws connection refused")
		return
	}
	h.log.Debug().Str("addr", r.RemoteAddr).Msg("ws connection closed")
}

// wsConn reports the HTTP peer address instead of the websocket placeholder.
type wsConn struct {
	net.Conn
	remote net.Addr
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.remote
}

type wsAddr string

func (a wsAddr) Network() string { return "websocket" }
func (a wsAddr) String() string  { return string(a) }
