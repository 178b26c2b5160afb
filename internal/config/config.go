// Package config loads plyr settings from a YAML file and PLYR_ environment
// variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/olivier-w/plyr/internal/player"
)

// Config holds application configuration
type Config struct {
	// Initial volume in percent (0-100), used when no state was restored
	DefaultVolume float64

	// Initial playback speed, used when no state was restored
	DefaultSpeed float64

	// Host autoplay hint. Carried through but not acted on.
	Autoplay bool

	Visualizer VisualizerConfig

	// SQLite database for persisted player state
	StateDB string

	// File the values were read from, empty when none was found
	File string
}

// VisualizerConfig holds the bar visualizer defaults
type VisualizerConfig struct {
	Bars     int
	PeakHold bool
	FPS      int
}

// Player converts the defaults into the controller's config.
func (c *Config) Player() player.Config {
	return player.Config{
		DefaultVolume: c.DefaultVolume,
		DefaultSpeed:  c.DefaultSpeed,
		Autoplay:      c.Autoplay,
	}
}

// Load reads configuration from path, or from the default locations when path
// is empty. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetDefault("default_volume", 80)
	v.SetDefault("default_speed", 1)
	v.SetDefault("autoplay", false)
	v.SetDefault("visualizer.bars", 32)
	v.SetDefault("visualizer.peak_hold", true)
	v.SetDefault("visualizer.fps", 30)
	v.SetDefault("state_db", filepath.Join(dataDir(), "state.db"))

	v.SetEnvPrefix("PLYR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DefaultVolume: min(max(v.GetFloat64("default_volume"), 0), 100),
		DefaultSpeed:  v.GetFloat64("default_speed"),
		Autoplay:      v.GetBool("autoplay"),
		Visualizer: VisualizerConfig{
			Bars:     v.GetInt("visualizer.bars"),
			PeakHold: v.GetBool("visualizer.peak_hold"),
			FPS:      v.GetInt("visualizer.fps"),
		},
		StateDB: v.GetString("state_db"),
		File:    v.ConfigFileUsed(),
	}
	if cfg.DefaultSpeed <= 0 {
		cfg.DefaultSpeed = 1
	}
	return cfg, nil
}

// Watch reloads the config file whenever it changes and hands the result to
// fn. It blocks until ctx is done. Reload failures are logged and skipped.
func Watch(ctx context.Context, path string, log zerolog.Logger, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	name := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("file", path).Msg("Ignoring invalid config change")
				continue
			}
			log.Info().Str("file", path).Msg("Config reloaded")
			fn(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

// Dir returns the configuration directory path
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "plyr")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "plyr")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "plyr")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "plyr")
}

// StateDir returns the directory for logs, following XDG_STATE_HOME.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "plyr")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "state", "plyr")
}
