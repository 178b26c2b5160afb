package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/olivier-w/plyr/internal/config"
	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/logging"
	"github.com/olivier-w/plyr/internal/media"
	"github.com/olivier-w/plyr/internal/player"
	"github.com/olivier-w/plyr/internal/remote"
	"github.com/olivier-w/plyr/internal/ui"
	"github.com/olivier-w/plyr/internal/video"
	"github.com/olivier-w/plyr/internal/visualizer"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	path := logFile
	if path == "" {
		path = filepath.Join(config.StateDir(), "plyr.log")
	}
	logger, closer, err := logging.File(path, logLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	resolver := remote.NewResolver(nil, "plyr/"+version)
	entries, skipped := host.FileEntries(cmd.Context(), args, resolver)
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d unsupported entries\n", skipped)
	}
	if len(args) > 0 && len(entries) == 0 {
		return fmt.Errorf("nothing to play; supported formats: %s", media.SupportedExtsList())
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info().Str("version", version).Int("args", len(args)).Msg("Starting plyr")

	settings := a.settings(ctx)
	viz := visualizer.New(visualizer.NewAnalyser(a.tap), visualizer.Options{
		Bars:     settings.Bars,
		FPS:      cfg.Visualizer.FPS,
		PeakHold: settings.PeakHold,
		Smooth:   true,
	})

	local := ui.NewLocalHost(cfg.Player(), logger)
	unsubscribe := a.emitter.Subscribe(func(s player.Status) {
		_ = local.Send(host.StatusUpdate(s))
	})
	defer unsubscribe()

	dir, _ := os.Getwd()
	model := ui.New(ui.Options{
		Controller: a.ctrl,
		Events:     a.events,
		Host:       local,
		Visualizer: viz,
		FPS:        cfg.Visualizer.FPS,
		Settings:   settings,
		Saver:      a.store,
		Files:      entries,
		Dir:        dir,
		Remote:     resolver,
		Logger:     logger,
		Video:      openScreen,
		VideoClock: a.video,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	local.Attach(p.Send)

	if cfg.File != "" {
		go watchConfig(ctx, cfg.File, logger, local)
	}

	if _, err := p.Run(); err != nil && err != tea.ErrProgramKilled {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

func openScreen(ctx context.Context, input string, cols, rows int) (ui.VideoScreen, error) {
	s, err := video.Open(ctx, input, cols, rows)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// watchConfig pushes edits of the config file to the UI as config messages.
func watchConfig(ctx context.Context, path string, logger zerolog.Logger, local *ui.LocalHost) {
	err := config.Watch(ctx, path, logger, func(c *config.Config) {
		local.SetConfig(c.Player())
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Config watching disabled")
	}
}
