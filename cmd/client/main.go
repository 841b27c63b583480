package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/relaychat/internal/client"
	"github.com/vovakirdan/relaychat/internal/log"
	"github.com/vovakirdan/relaychat/internal/utils"
)

func main() {
	if err := newRootCmd(os.Args[1:]).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(rawArgs []string) *cobra.Command {
	var (
		serverIP string
		port     int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:                "relaychat-client",
		Short:              "Interactive client for the chat relay",
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, flag := range utils.UnknownFlags(cmd, rawArgs) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Unrecognized parameter: %s\n", flag)
			}
			if serverIP == "" {
				return errors.New("should set '--server_ip server_ip' parameter")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Chat output owns stdout, so diagnostics go to stderr.
			logger := log.NewWithWriter(logLevel, cmd.ErrOrStderr())

			addr := net.JoinHostPort(serverIP, strconv.Itoa(port))
			c, err := client.Dial(ctx, addr, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			logger.Debug().Str("addr", addr).Msg("connected")
			return c.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&serverIP, "server_ip", "", "relay server address (required)")
	flags.IntVar(&port, "port", 8000, "relay server port")
	flags.StringVar(&logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")

	cmd.SetArgs(rawArgs)
	return cmd
}
