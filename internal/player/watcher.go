package player

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pmarks/tunefold/internal/playlist"
	"github.com/pmarks/tunefold/internal/settings"
)

const watchDebounce = 500 * time.Millisecond

// folderWatch rescans the playlist when files appear in or disappear
// from the active folder.
type folderWatch struct {
	watcher *fsnotify.Watcher
	folder  string
}

// EnableWatch starts watching the active folder for playlist changes.
// Call before Run; the watch goroutine stops when ctx is done.
func (c *Controller) EnableWatch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create folder watcher: %w", err)
	}
	c.watch = &folderWatch{watcher: w}
	go c.watchLoop(ctx, w)
	return nil
}

// watchFolder points the watcher at folder. Called on the control
// goroutine whenever the active folder changes.
func (c *Controller) watchFolder(folder string) {
	if c.watch == nil || c.watch.folder == folder {
		return
	}
	if c.watch.folder != "" {
		_ = c.watch.watcher.Remove(c.watch.folder)
	}
	if err := c.watch.watcher.Add(folder); err != nil {
		c.logger.Warn().Err(err).Str("folder", folder).Msg("Failed to watch folder")
		return
	}
	c.watch.folder = folder
}

func (c *Controller) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	// Debounce bursts of filesystem events into a single rescan.
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			ext := filepath.Ext(ev.Name)
			if ext != ".mp3" && ext != ".wav" {
				continue
			}
			resetDebounce(debounce, watchDebounce)
		case <-debounce.C:
			c.do(c.rescan)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Warn().Err(err).Msg("Folder watcher error")
		}
	}
}

// resetDebounce restarts the timer, draining an expiry that fired but
// was not yet consumed. Without the drain a burst racing the timer
// would leave a stale expiry in the channel and trigger twice.
func resetDebounce(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// rescan rebuilds the playlist from the active folder. The playing
// track keeps playing when it survives the rescan; otherwise the
// session behaves like a fresh folder change.
func (c *Controller) rescan(ctx context.Context) {
	if c.playlist == nil || c.playlist.Folder == "" {
		return
	}
	current, hadCurrent := c.playlist.Current()

	pl, err := playlist.Rebuild(c.playlist.Folder)
	if err != nil && !errors.Is(err, playlist.ErrEmptyPlaylist) {
		c.logger.Error().Err(err).Msg("Failed to rescan folder")
		return
	}
	c.logger.Info().Int("tracks", pl.Len()).Msg("Folder rescanned")
	c.playlist = pl

	if pl.Len() == 0 {
		if c.state != StateIdle {
			if stopErr := c.engine.Stop(); stopErr != nil {
				c.logger.Warn().Err(stopErr).Msg("Engine stop failed")
			}
			c.state = StateIdle
			c.target = ""
		}
		c.listener.LabelChanged(labelNoFiles)
		c.listener.EnabledChanged(false)
		if err := c.store.SetMany(ctx, map[string]any{
			settings.KeyCurrentSong: 0,
			settings.KeyCountMusics: 0,
		}); err != nil {
			c.logger.Error().Err(err).Msg("Failed to persist rescan")
		}
		return
	}

	c.listener.EnabledChanged(true)

	if hadCurrent && c.state != StateIdle && c.state != StateError {
		if idx := pl.IndexOf(current.File); idx >= 0 {
			pl.SetIndex(idx)
			if err := c.store.SetMany(ctx, map[string]any{
				settings.KeyCurrentSong: idx,
				settings.KeyCountMusics: pl.Len(),
			}); err != nil {
				c.logger.Error().Err(err).Msg("Failed to persist rescan")
			}
			return
		}
	}

	if err := c.loadTrack(ctx, 0); err != nil {
		c.logger.Error().Err(err).Msg("Failed to switch track")
	}
}
