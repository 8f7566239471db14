package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application bootstrap configuration. The mutable session
// snapshot (folder, track index, volume, tunables) lives in the
// settings store; this covers only what is needed before the store is
// open.
type Config struct {
	// Data directory for the settings database
	DataDir string

	// Log level for the play command
	LogLevel string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("data_dir", "")
	v.SetDefault("log_level", "info")

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables
	v.SetEnvPrefix("TUNEFOLD")
	v.AutomaticEnv()

	cfg := &Config{
		DataDir:  v.GetString("data_dir"),
		LogLevel: v.GetString("log_level"),
	}

	return cfg, nil
}

// EffectiveDataDir returns the configured data directory, defaulting to
// ~/.local/share/tunefold, creating it if needed.
func (c *Config) EffectiveDataDir() (string, error) {
	dataDir := c.DataDir
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(homeDir, ".local", "share", "tunefold")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "tunefold")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}
