package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/logging"
	"github.com/olivier-w/plyr/internal/player"
)

// serveCmd runs the player headless behind the stdio message bridge
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the player behind a JSON-lines bridge on stdio",
	Long: `Run the player without a terminal UI. The host program writes one JSON
message per line to stdin (addFiles, togglePlay, next, prev, config,
openSettings) and reads statusUpdate, requestConfig and openFile messages
from stdout. Logs go to stderr unless --log-file is set.

The player asks for configuration on start and exits when stdin closes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.Console(os.Stderr, logLevel)
	if logFile != "" {
		fileLogger, closer, err := logging.File(logFile, logLevel)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = fileLogger
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	bridge := host.NewBridge(cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	return serve(ctx, a.ctrl, a.events, a.emitter, bridge, logger)
}

// serve drives the controller from one loop: host messages and back-end
// events are applied in arrival order until ctx ends or the host hangs up.
func serve(ctx context.Context, ctrl *player.Controller, events <-chan player.Event, emitter *host.Emitter, bridge *host.Bridge, logger zerolog.Logger) error {
	unsubscribe := emitter.Subscribe(func(s player.Status) {
		if err := bridge.Send(host.StatusUpdate(s)); err != nil {
			logger.Warn().Err(err).Msg("Failed to send status")
		}
	})
	defer unsubscribe()

	msgs := bridge.Listen(ctx)
	if err := bridge.Send(host.Message{Type: host.TypeRequestConfig}); err != nil {
		return err
	}
	logger.Info().Msg("Serving on stdio")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down")
			return nil
		case m, ok := <-msgs:
			if !ok {
				logger.Info().Msg("Host closed the connection")
				return nil
			}
			if !host.Dispatch(ctrl, m) {
				logger.Debug().Str("type", string(m.Type)).Msg("No surface for message")
			}
		case ev := <-events:
			ctrl.HandleEvent(ev)
		}
	}
}
