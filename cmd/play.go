package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pmarks/tunefold/internal/config"
	"github.com/pmarks/tunefold/internal/engine"
	"github.com/pmarks/tunefold/internal/player"
	"github.com/pmarks/tunefold/internal/settings"
	"github.com/pmarks/tunefold/internal/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	playFolder   string
	playLogFile  string
	playLogLevel string
	playDataDir  string
	playNoUI     bool
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the audio files of a folder",
	Long: `Play the audio files of a folder in directory order.

The player will:
- Build the playlist from the folder's .mp3 and .wav files
- Restore the saved volume and seek/poll tunables from the settings store
- Advance to the next track when the current one ends, wrapping at the end
- Rescan the playlist when files are added to or removed from the folder
- Persist the folder, track index, and volume on every change

Without --folder the last opened folder is resumed from the start.
The terminal UI runs in the foreground; use --no-ui for headless
playback driven only by the saved settings.`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	// Command-line flags
	playCmd.Flags().StringVar(&playFolder, "folder", "", "Folder of audio files to open (default: last opened folder)")
	playCmd.Flags().StringVar(&playLogFile, "log-file", "", "Log file path (default: stderr, or discarded under the UI)")
	playCmd.Flags().StringVar(&playLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	playCmd.Flags().StringVar(&playDataDir, "data-dir", "", "Data directory for the settings database (default: ~/.local/share/tunefold)")
	playCmd.Flags().BoolVar(&playNoUI, "no-ui", false, "Run without the terminal UI")
}

func runPlay(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if playDataDir != "" {
		cfg.DataDir = playDataDir
	}
	logLevel := cfg.LogLevel
	if playLogLevel != "" {
		logLevel = playLogLevel
	}

	// Set up logging. The UI owns the terminal, so without a log file
	// the logs are discarded rather than written over the screen.
	var logger zerolog.Logger
	if playLogFile == "" && !playNoUI {
		logger = zerolog.Nop()
	} else {
		logger = setupLogger(playLogFile, logLevel)
	}

	logger.Info().
		Str("version", version).
		Msg("Starting tunefold")

	// Determine data directory
	dataDir, err := cfg.EffectiveDataDir()
	if err != nil {
		return fmt.Errorf("failed to prepare data directory: %w", err)
	}
	logger.Info().Str("data_dir", dataDir).Msg("Using data directory")

	// Open settings store
	store, err := settings.Open(filepath.Join(dataDir, "settings.db"))
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	defer store.Close()

	// Create playback engine
	eng, err := engine.NewBeep(logger.With().Str("component", "engine").Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer eng.Close()

	// Create the UI listener, themed per the persisted setting
	var (
		app      *tui.App
		listener player.Listener = player.NopListener{}
	)
	if !playNoUI {
		uiCfg := tui.DefaultConfig()
		theme, err := store.GetString(context.Background(), settings.KeyTheme)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to read theme")
		} else {
			uiCfg.Theme = theme
		}
		app = tui.NewWithConfig(uiCfg)
		listener = app
	}

	// Create the playback controller
	ctrl, err := player.New(eng, store, listener, logger)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Watch the active folder for added and removed files
	if err := ctrl.EnableWatch(ctx); err != nil {
		logger.Warn().Err(err).Msg("Folder watching unavailable")
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- ctrl.Run(ctx)
	}()

	// Open the requested folder, or resume the saved one
	if playFolder != "" {
		ctrl.OpenFolder(playFolder)
	} else {
		ctrl.Start()
	}

	if playNoUI {
		err = <-runErr
		if err != nil && err != context.Canceled {
			return fmt.Errorf("player error: %w", err)
		}
		logger.Info().Msg("Player stopped")
		return nil
	}

	app.SetTransport(ctrl)
	uiErr := app.Run(ctx)
	cancel()
	if err := <-runErr; err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("Player error")
	}
	return uiErr
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
