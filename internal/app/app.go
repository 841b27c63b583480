package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/metrics"
	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/relaychat/internal/transport/http"
	"github.com/vovakirdan/relaychat/internal/transport/tcp"
)

// App wires together core, storage and transport layers.
type App struct {
	cfg             config.Config
	hub             *core.Hub
	tcp             *tcp.Server
	admin           *stdhttp.Server
	journal         store.Journal
	recorder        *store.Recorder
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		cfg:             cfg,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	m := metrics.New()
	sinks := []core.EventSink{m}

	if cfg.JournalPath != "" {
		journal, err := sqlite.New(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		logger.Info().Str("journal_path", cfg.JournalPath).Msg("session journal initialized")
		a.journal = journal
		a.recorder = store.NewRecorder(journal, 0, logger)
		sinks = append(sinks, a.recorder)
	}

	a.hub = core.NewHub(core.Options{
		Capacity:       cfg.MaxClients,
		WelcomeMessage: cfg.WelcomeMessage,
		MaxNameLength:  cfg.MaxNameLength,
		WriteTimeout:   cfg.WriteTimeout,
	}, logger, sinks...)

	a.tcp = tcp.NewServer(a.hub, tcp.Options{
		MaxLineLength:      cfg.MaxLineLength,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	if cfg.AdminAddr != "" {
		a.admin = transporthttp.NewServer(cfg.AdminAddr, transporthttp.Deps{
			Hub:     a.hub,
			Conns:   a.tcp,
			Metrics: m.Handler(),
			Journal: a.journal,
		}, logger)
	}

	return a, nil
}

// Run serves until ctx is cancelled or a listener fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// The recorder stops only after the hub is closed and its last events are queued.
	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	g.Go(func() error {
		a.log.Info().Str("addr", a.cfg.Addr()).Int("max_clients", a.cfg.MaxClients).Msg("starting relay")
		err := a.tcp.Listen(gctx, a.cfg.Addr())

		// The listener is gone; disconnect everyone so no handler outlives the hub.
		a.hub.Close()
		a.tcp.Wait()
		stopRecorder()
		return err
	})

	if a.admin != nil {
		g.Go(func() error {
			a.log.Info().Str("addr", a.admin.Addr).Msg("starting admin http server")
			if err := a.admin.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down admin http server")
			return a.admin.Shutdown(shutdownCtx)
		})
	}

	if a.recorder != nil {
		g.Go(func() error {
			return a.recorder.Run(recCtx)
		})
	}

	err := g.Wait()
	a.cleanup()
	a.log.Info().Msg("relay stopped")
	return err
}

// cleanup closes the journal and other resources.
func (a *App) cleanup() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close journal")
		} else {
			a.log.Info().Msg("journal closed")
		}
	}
}
