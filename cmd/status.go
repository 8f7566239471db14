/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"
	"github.com/pmarks/tunefold/internal/playlist"
	"github.com/pmarks/tunefold/internal/settings"
	"github.com/spf13/cobra"
)

// defaultStatusFormat renders the saved snapshot on one line.
const defaultStatusFormat = "{{.Track}} [{{.Index}}/{{.Count}}] vol:{{.Volume}}%"

// Snapshot is the saved playback session as exposed to status templates.
type Snapshot struct {
	Folder string
	Track  string
	Index  int
	Count  int
	Volume int
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the saved playback snapshot",
	Long: `Display the playback snapshot saved by the player.

The output format is a Go template. Available fields: .Folder, .Track,
.Index, .Count, .Volume

Exit codes:
  0 - A folder is saved and its snapshot was printed
  1 - No folder has been opened yet`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("format", "f", "", "Output format template")
	statusCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled)")
	statusCmd.Flags().StringVar(&statusDataDir, "data-dir", "", "Data directory for the settings database (default: ~/.local/share/tunefold)")
}

var statusDataDir string

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore(statusDataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	snap, err := readSnapshot(ctx, store)
	if err != nil {
		return err
	}
	if snap.Folder == "" {
		return errors.New("no folder has been opened yet")
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = defaultStatusFormat
	}

	output, err := formatSnapshot(snap, format)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width > 0 {
		output = padToWidth(output, width)
	}

	fmt.Println(output)
	return nil
}

// readSnapshot loads the saved session and resolves the current track's
// display name against the folder's present contents.
func readSnapshot(ctx context.Context, store settings.Store) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Folder, err = store.GetString(ctx, settings.KeyPathToMusic); err != nil {
		return snap, err
	}
	if snap.Index, err = store.GetInt(ctx, settings.KeyCurrentSong); err != nil {
		return snap, err
	}
	if snap.Count, err = store.GetInt(ctx, settings.KeyCountMusics); err != nil {
		return snap, err
	}
	if snap.Volume, err = store.GetInt(ctx, settings.KeyCurrentVolume); err != nil {
		return snap, err
	}

	if snap.Folder == "" {
		return snap, nil
	}
	pl, err := playlist.Rebuild(snap.Folder)
	if err != nil && !errors.Is(err, playlist.ErrEmptyPlaylist) {
		// Folder may have moved since the last session; the numeric
		// snapshot is still worth printing.
		return snap, nil
	}
	if track, ok := pl.At(snap.Index); ok {
		snap.Track = track.DisplayName()
	}
	return snap, nil
}

// formatSnapshot applies the template to the snapshot data
func formatSnapshot(snap Snapshot, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, snap); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			// If width is too small, just return ellipsis truncated to width
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Truncate to (width - ellipsisWidth) and add ellipsis
		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Ensure we're exactly at the target width (in case truncate was imprecise)
		resultWidth := runewidth.StringWidth(result)
		if resultWidth < width {
			padding := strings.Repeat(" ", width-resultWidth)
			return result + padding
		} else if resultWidth > width {
			return runewidth.Truncate(result, width, "")
		}
		return result
	} else if currentWidth < width {
		// Pad with spaces
		padding := strings.Repeat(" ", width-currentWidth)
		return text + padding
	}

	return text // exactly the right width
}
