package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configFile string
	logLevel   string
	logFile    string
	stateDB    string
)

// rootCmd runs the terminal player
var rootCmd = &cobra.Command{
	Use:   "plyr [files or playlists...]",
	Short: "Terminal audio and video player",
	Long: `plyr plays local files, playlists and http(s) streams in the terminal.

Arguments may be media files, m3u/pls playlists or URLs. They are appended
to the saved playlist. Playback state is restored from the previous session
but never resumes on its own.

Use "plyr serve" to drive the player from another program over stdio.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default: ~/.config/plyr/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "Log file path (default: ~/.local/state/plyr/plyr.log for the TUI, stderr for serve)")
	flags.StringVar(&stateDB, "state-db", "", "SQLite database for saved state (default: from config)")
}
