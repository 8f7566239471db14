/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
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

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tunefold",
	Short: "Terminal player for a folder of audio files",
	Long: `tunefold plays the audio files of a local folder in directory order.

The play command opens a folder, restores the saved volume and tunables,
and drives playback with a small terminal UI. Playback position, the
current track, and every setting change are persisted immediately, so a
restart picks up where the last session left off.

It also provides CLI commands to inspect the saved playback snapshot,
list the tracks of a folder, and read or change persistent settings.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags can be added here if needed
}
