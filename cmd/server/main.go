package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/relaychat/internal/app"
	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/log"
	"github.com/vovakirdan/relaychat/internal/utils"
)

func main() {
	if err := newRootCmd(os.Args[1:]).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(rawArgs []string) *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "relaychat-server",
		Short:         "Line-oriented TCP chat relay",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Unknown flags are reported and ignored instead of aborting startup.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, flag := range utils.UnknownFlags(cmd, rawArgs) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Unknown flag: %s\n", flag)
			}
			for _, arg := range args {
				fmt.Fprintf(cmd.ErrOrStderr(), "Unknown argument: %s\n", arg)
			}
			return run(cmd.Context(), configPath, overrides)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file (default relaychat.yaml)")
	flags.StringVar(&overrides.Host, "host", "", "listen host (default all interfaces)")
	flags.IntVar(&overrides.Port, "port", 0, "listen port (default 8000)")
	flags.IntVar(&overrides.MaxClients, "max-clients", 0, "maximum simultaneous clients (default 10)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&overrides.AdminAddr, "admin-addr", "", "admin HTTP listen address, empty disables it")
	flags.StringVar(&overrides.JournalPath, "journal", "", "SQLite session journal path, empty disables it")

	cmd.SetArgs(rawArgs)
	return cmd
}

func run(parent context.Context, configPath string, overrides config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := log.New(overrides.LogLevel)

	cfg, resolvedPath, err := config.Load(bootLogger, configPath)
	if err != nil {
		bootLogger.Error().Err(err).Msg("failed to load config")
		return err
	}
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", resolvedPath).Msg("configuration loaded")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize app")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	return nil
}
