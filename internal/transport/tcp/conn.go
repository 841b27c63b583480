package tcp

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
)

// handle runs the read loop of one client: read a complete line, hand it to
// the hub, repeat. Reads happen outside the hub lock.
func (s *Server) handle(ctx context.Context, c *core.Client) {
	conn := c.Conn()
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger := s.log.With().
		Int64("client_id", c.ID).
		Str("session_id", c.SessionID).
		Str("addr", c.Addr).
		Logger()
	logger.Debug().Msg("handling client")

	reader := proto.NewLineReader(conn, s.opts.MaxLineLength)
	limiter := newRateLimiter(s.opts.RateLimitPerMinute)

	for {
		line, err := reader.ReadLine()
		if err != nil {
			reason := core.ReasonReadError
			switch {
			case ctx.Err() != nil:
				reason = core.ReasonShutdown
			case errors.Is(err, io.EOF):
				reason = core.ReasonPeerClosed
				logger.Debug().Msg("connection closed by peer")
			case errors.Is(err, net.ErrClosed):
				// Closed by the hub after a failed write; it already released the client.
				logger.Debug().Msg("connection closed locally")
			default:
				logger.Warn().Err(err).Msg("read failed, dropping client")
			}
			s.hub.Leave(c, reason)
			return
		}

		logger.Debug().Int("bytes", len(line)).Msg("line received")

		if line == "" {
			continue
		}
		if !limiter.allow() {
			s.hub.Reject(c, core.ErrRateLimited)
			continue
		}
		if !s.hub.HandleLine(c, line) {
			return
		}
	}
}
