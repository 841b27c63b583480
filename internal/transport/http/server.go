package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/store"
)

const readHeaderTimeout = 5 * time.Second

// ConnServer runs the line protocol over an established connection.
type ConnServer interface {
	ServeConn(ctx context.Context, conn net.Conn) error
}

// Deps are the components the admin server exposes. Metrics and Journal may be nil.
type Deps struct {
	Hub     *core.Hub
	Conns   ConnServer
	Metrics stdhttp.Handler
	Journal store.Journal
}

// NewServer builds the admin HTTP server listening on addr.
func NewServer(addr string, deps Deps, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              addr,
		Handler:           NewHandler(deps, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// NewHandler serves /ws on a plain mux and everything else through gin.
// The websocket upgrade hijacks the connection, which gin's writer refuses.
func NewHandler(deps Deps, logger *zerolog.Logger) stdhttp.Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	mux := stdhttp.NewServeMux()
	if deps.Conns != nil {
		mux.Handle("/ws", NewWSHandler(deps.Conns, logger))
	}
	mux.Handle("/", NewRouter(deps, logger))
	return mux
}

// NewRouter registers the admin routes on a gin engine.
func NewRouter(deps Deps, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	handlers := NewAdminHandlers(deps.Hub, deps.Journal, logger)

	router.GET("/health", healthHandler)
	router.GET("/clients", handlers.ListClients)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id/renames", handlers.ListRenames)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func errorf(format string, args ...any) ErrorResponse {
	return ErrorResponse{Error: fmt.Sprintf(format, args...)}
}
