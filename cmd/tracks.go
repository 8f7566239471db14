package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmarks/tunefold/internal/playlist"
	"github.com/pmarks/tunefold/internal/settings"
	"github.com/spf13/cobra"
)

var (
	tracksFolder  string
	tracksDataDir string
)

// tracksCmd represents the tracks command
var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List the playable tracks of a folder",
	Long: `List the playable tracks of a folder in playback order.

Without --folder the last opened folder from the settings database is
listed. When the listed folder matches the saved one, the saved current
track is marked with an asterisk.`,
	RunE: runTracks,
}

func init() {
	rootCmd.AddCommand(tracksCmd)

	tracksCmd.Flags().StringVar(&tracksFolder, "folder", "", "Folder to list (default: last opened folder)")
	tracksCmd.Flags().StringVar(&tracksDataDir, "data-dir", "", "Data directory for the settings database (default: ~/.local/share/tunefold)")
	tracksCmd.Flags().Bool("full", false, "Print full file names instead of display names")
}

func runTracks(cmd *cobra.Command, args []string) error {
	store, err := openStore(tracksDataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	savedFolder, err := store.GetString(ctx, settings.KeyPathToMusic)
	if err != nil {
		return fmt.Errorf("failed to read saved folder: %w", err)
	}

	folder := tracksFolder
	if folder == "" {
		folder = savedFolder
	}
	if folder == "" {
		return errors.New("no folder given and none saved; pass --folder")
	}

	pl, err := playlist.Rebuild(folder)
	if err != nil && !errors.Is(err, playlist.ErrEmptyPlaylist) {
		return fmt.Errorf("failed to read folder: %w", err)
	}
	if pl.Len() == 0 {
		fmt.Println("No music files")
		return nil
	}

	// Mark the saved current track when listing the saved folder
	current := -1
	if folder == savedFolder {
		if idx, err := store.GetInt(ctx, settings.KeyCurrentSong); err == nil && idx >= 0 && idx < pl.Len() {
			current = idx
		}
	}

	full, _ := cmd.Flags().GetBool("full")
	for i, track := range pl.Tracks() {
		marker := " "
		if i == current {
			marker = "*"
		}
		name := track.DisplayName()
		if full {
			name = track.File
		}
		fmt.Printf("%s %3d  %s\n", marker, i, name)
	}
	return nil
}
