package playlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
)

// ErrEmptyPlaylist is returned by Rebuild when the folder contains no
// playable files. Callers surface it as a "no files" state rather than
// treating it as fatal.
var ErrEmptyPlaylist = errors.New("no playable files in folder")

// maxNameWidth is the display width at which track names are truncated.
const maxNameWidth = 28

var playableExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
}

// Track is one playable audio file entry in a playlist.
// It is identified by its filename within the playlist folder.
type Track struct {
	File string
}

// Path returns the full path of the track inside the given folder.
func (t Track) Path(folder string) string {
	return filepath.Join(folder, t.File)
}

// DisplayName returns the track's base name without its extension,
// truncated to 28 cells with a trailing ellipsis when longer.
func (t Track) DisplayName() string {
	base := strings.TrimSuffix(t.File, filepath.Ext(t.File))
	if runewidth.StringWidth(base) <= maxNameWidth {
		return base
	}
	return runewidth.Truncate(base, maxNameWidth, "") + "..."
}

// Playlist is an ordered, index-addressable list of tracks from a single
// folder. The index is always valid while the playlist is non-empty.
type Playlist struct {
	Folder string

	tracks []Track
	index  int
}

// New creates a playlist over the given tracks with the index at 0.
func New(folder string, tracks []Track) *Playlist {
	return &Playlist{Folder: folder, tracks: tracks}
}

// Rebuild lists the folder non-recursively, keeps entries with a playable
// extension, and preserves the underlying directory enumeration order.
// When no playable files exist it returns the empty playlist together
// with ErrEmptyPlaylist.
func Rebuild(folder string) (*Playlist, error) {
	f, err := os.Open(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to open folder: %w", err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder: %w", err)
	}

	var tracks []Track
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if playableExtensions[filepath.Ext(entry.Name())] {
			tracks = append(tracks, Track{File: entry.Name()})
		}
	}

	pl := New(folder, tracks)
	if len(tracks) == 0 {
		return pl, ErrEmptyPlaylist
	}
	return pl, nil
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Index returns the current track index. It is meaningless when the
// playlist is empty.
func (p *Playlist) Index() int {
	return p.index
}

// Current returns the track at the current index, or false when the
// playlist is empty.
func (p *Playlist) Current() (Track, bool) {
	if len(p.tracks) == 0 {
		return Track{}, false
	}
	return p.tracks[p.index], true
}

// At returns the track at index i, or false when i is out of range.
func (p *Playlist) At(i int) (Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return Track{}, false
	}
	return p.tracks[i], true
}

// Tracks returns a copy of the track list.
func (p *Playlist) Tracks() []Track {
	out := make([]Track, len(p.tracks))
	copy(out, p.tracks)
	return out
}

// NextIndex returns the index following the current one, wrapping around.
// For an empty playlist it returns the current index unchanged.
func (p *Playlist) NextIndex() int {
	if len(p.tracks) == 0 {
		return p.index
	}
	return (p.index + 1) % len(p.tracks)
}

// PrevIndex returns the index preceding the current one, wrapping around.
// For an empty playlist it returns the current index unchanged.
func (p *Playlist) PrevIndex() int {
	if len(p.tracks) == 0 {
		return p.index
	}
	return (p.index - 1 + len(p.tracks)) % len(p.tracks)
}

// SetIndex moves the cursor to i. Out-of-range values reset to 0 so the
// index invariant holds for non-empty playlists. A no-op when empty.
func (p *Playlist) SetIndex(i int) {
	if len(p.tracks) == 0 {
		return
	}
	if i < 0 || i >= len(p.tracks) {
		i = 0
	}
	p.index = i
}

// IndexOf returns the index of the track with the given filename, or -1.
func (p *Playlist) IndexOf(file string) int {
	for i, t := range p.tracks {
		if t.File == file {
			return i
		}
	}
	return -1
}
