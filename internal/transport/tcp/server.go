// Package tcp serves the line protocol over stream connections.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/core"
)

// Options tune connection handling.
type Options struct {
	MaxLineLength      int
	RateLimitPerMinute int
}

// Server accepts connections and runs one handler goroutine per client.
type Server struct {
	hub  *core.Hub
	opts Options
	log  *zerolog.Logger

	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

// ErrServerStopping is returned for connections offered after Wait was called.
var ErrServerStopping = errors.New("server stopping")

// NewServer builds a server feeding connections into hub.
func NewServer(hub *core.Hub, opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{hub: hub, opts: opts, log: logger}
}

// Listen binds addr and serves it until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening, waiting for client connections")
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, which closes ln.
// Each accepted connection is registered before its handler starts.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			s.log.Warn().Err(err).Dur("retry_in", tempDelay).Msg("accept failed")
			select {
			case <-time.After(tempDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		tempDelay = 0

		if !s.track() {
			_ = conn.Close()
			continue
		}
		client, err := s.register(conn)
		if err != nil {
			s.wg.Done()
			continue
		}

		go func() {
			defer s.wg.Done()
			s.handle(ctx, client)
		}()
	}
}

// ServeConn registers an already established connection and handles it on the
// calling goroutine until the client leaves.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	if !s.track() {
		_ = conn.Close()
		return ErrServerStopping
	}
	defer s.wg.Done()

	client, err := s.register(conn)
	if err != nil {
		return err
	}
	s.handle(ctx, client)
	return nil
}

// Wait refuses further connections and blocks until every connection
// handler has returned.
func (s *Server) Wait() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	s.wg.Wait()
}

// track counts a new handler unless the server is stopping.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) register(conn net.Conn) (*core.Client, error) {
	client, err := s.hub.Join(conn)
	if err != nil {
		if !errors.Is(err, core.ErrCapacityExceeded) {
			s.log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("register connection")
		}
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}
