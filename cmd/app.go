package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/config"
	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/player"
	"github.com/olivier-w/plyr/internal/store"
	"github.com/olivier-w/plyr/internal/visualizer"
)

const eventBuffer = 256

// app is the player core shared by the TUI and serve: both back-ends, the
// controller, persistence and the status emitter.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    *store.Store
	writer   *store.Writer
	events   chan player.Event
	done     chan struct{}
	tap      *player.Tap
	video    *player.Engine
	emitter  *host.Emitter
	ctrl     *player.Controller
	restored bool
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if stateDB != "" {
		cfg.StateDB = stateDB
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	st, err := store.Open(cfg.StateDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		writer:  store.NewWriter(st, log),
		events:  make(chan player.Event, eventBuffer),
		done:    make(chan struct{}),
		tap:     player.NewTap(visualizer.FFTSize * 8),
		emitter: host.NewEmitter(),
	}

	emit := func(ev player.Event) {
		select {
		case a.events <- ev:
		case <-a.done:
		}
	}
	a.video = player.NewVideoEngine(emit, log)
	backends := player.Backends{
		Audio: player.NewAudioEngine(emit, a.tap, log),
		Video: a.video,
	}
	a.ctrl = player.New(backends,
		player.WithLogger(log),
		player.WithStatusSink(a.emitter),
		player.WithPersister(a.writer),
	)

	saved, ok, err := st.LoadState(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Ignoring unreadable saved state")
	case ok:
		a.ctrl.Restore(saved)
		a.restored = true
		log.Info().Int("tracks", len(saved.Playlist)).Msg("Restored player state")
	}
	return a, nil
}

// settings returns the saved presentation settings, or the configured ones.
func (a *app) settings(ctx context.Context) store.Settings {
	s, ok, err := a.store.LoadSettings(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("Ignoring unreadable settings")
	}
	if ok {
		return s
	}
	return store.Settings{
		Visualizer: true,
		PeakHold:   a.cfg.Visualizer.PeakHold,
		Bars:       a.cfg.Visualizer.Bars,
	}
}

func (a *app) Close() {
	a.ctrl.Close()
	close(a.done)
	a.writer.Close()
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("Failed to close state database")
	}
}
