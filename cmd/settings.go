package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmarks/tunefold/internal/config"
	"github.com/pmarks/tunefold/internal/settings"
	"github.com/spf13/cobra"
)

var settingsDataDir string

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change persistent settings",
	Long: `Inspect and change the persistent settings database.

Settings cover the playback session (folder, track index, volume) and
the tunables (volume step, seek step, position poll interval, window
geometry, language, theme). Values are validated against the schema
before they are written.

A running player picks up tunable changes on its next reload; session
keys are owned by the player while it runs.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings and their current values",
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change the value of a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	settingsCmd.PersistentFlags().StringVar(&settingsDataDir, "data-dir", "", "Data directory for the settings database (default: ~/.local/share/tunefold)")
}

// openStore opens the settings database under the configured data dir.
func openStore(override string) (*settings.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if override != "" {
		cfg.DataDir = override
	}
	dataDir, err := cfg.EffectiveDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}
	store, err := settings.Open(filepath.Join(dataDir, "settings.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	return store, nil
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(settingsDataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, key := range settings.Keys() {
		value, err := store.GetRaw(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		fmt.Printf("%-24s %s\n", key, value)
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	store, err := openStore(settingsDataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	value, err := store.GetRaw(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	store, err := openStore(settingsDataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	key, raw := args[0], args[1]
	if err := store.SetFromString(context.Background(), key, raw); err != nil {
		if field, ok := settings.Schema[key]; ok && len(field.Enum) > 0 {
			return fmt.Errorf("%w (valid values: %s)", err, strings.Join(field.Enum, ", "))
		}
		return err
	}
	return nil
}
