// Package player implements the playback session coordinator: the state
// machine that drives the media engine from a folder playlist and keeps
// the persisted session snapshot in step with live playback.
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pmarks/tunefold/internal/engine"
	"github.com/pmarks/tunefold/internal/playlist"
	"github.com/pmarks/tunefold/internal/settings"
	"github.com/rs/zerolog"
)

const (
	labelNoFolder      = "No folder selected"
	labelNoFiles       = "No music files"
	labelNoMetadata    = "No metadata"
	labelPlaybackError = "Playback error"
	labelFolderError   = "Cannot open folder"
)

// Controller owns the playback session. All engine commands and all
// session mutation happen on the goroutine running Run; public methods
// enqueue commands onto it, and engine events are consumed by it, so no
// state is ever touched from an engine callback goroutine.
type Controller struct {
	engine   engine.Engine
	store    settings.Store
	listener Listener
	logger   zerolog.Logger

	playlist *playlist.Playlist
	state    State

	// target is the full path the current engine commands refer to.
	// Events tagged with any other path are stale and discarded.
	target string

	// engineStopped tracks whether the engine has reported a stopped
	// transport state for the current target. Auto-advance requires it
	// alongside the end-of-media status, which keeps duplicate terminal
	// events from advancing twice.
	engineStopped bool

	position time.Duration
	duration time.Duration

	volume       *Volume
	seekStep     time.Duration
	pollInterval time.Duration

	commands chan func(context.Context)
	ticker   *time.Ticker

	watch *folderWatch
}

// New builds a controller wired to the given engine, settings store, and
// presentation listener. Tunables (volume step, poll interval, seek
// step) and the persisted volume are read from the store.
func New(eng engine.Engine, store settings.Store, listener Listener, logger zerolog.Logger) (*Controller, error) {
	if listener == nil {
		listener = NopListener{}
	}
	logger = logger.With().Str("component", "player").Logger()

	ctx := context.Background()
	step, err := store.GetInt(ctx, settings.KeyStepVolume)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume step: %w", err)
	}
	pollInterval, err := store.GetDuration(ctx, settings.KeyUpdateInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll interval: %w", err)
	}
	seekStep, err := store.GetDuration(ctx, settings.KeyMoveInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to read seek step: %w", err)
	}
	level, err := sessionVolume(ctx, store)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		engine:       eng,
		store:        store,
		listener:     listener,
		logger:       logger,
		state:        StateIdle,
		volume:       newVolume(eng, store, listener, logger, step, level),
		seekStep:     seekStep,
		pollInterval: pollInterval,
		commands:     make(chan func(context.Context), 16),
	}

	if err := c.volume.apply(); err != nil {
		logger.Warn().Err(err).Msg("Failed to restore volume")
	}
	return c, nil
}

// Run is the control loop. It owns all session state: user commands,
// engine events, and the position poll are serialized here. Blocks
// until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Dur("poll_interval", c.pollInterval).
		Msg("Starting playback controller")

	c.ticker = time.NewTicker(c.pollInterval)
	defer c.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := c.engine.Stop(); err != nil {
				c.logger.Warn().Err(err).Msg("Engine stop on shutdown failed")
			}
			c.logger.Info().Msg("Playback controller stopped")
			return ctx.Err()
		case cmd := <-c.commands:
			cmd(ctx)
		case ev := <-c.engine.Events():
			c.handleEvent(ctx, ev)
		case <-c.ticker.C:
			c.syncPosition()
		}
	}
}

// do enqueues a command for the control goroutine.
func (c *Controller) do(fn func(context.Context)) {
	c.commands <- fn
}

// Start restores the persisted session: if a folder is configured the
// playlist is rebuilt and playback begins at its first track.
func (c *Controller) Start() { c.do(c.startup) }

// OpenFolder switches the session to a new folder.
func (c *Controller) OpenFolder(folder string) {
	c.do(func(ctx context.Context) { c.openFolder(ctx, folder) })
}

// PlayPause toggles between playing and paused.
func (c *Controller) PlayPause() { c.do(c.playPause) }

// Next switches to the next playlist entry, wrapping around.
func (c *Controller) Next() { c.do(c.next) }

// Prev switches to the previous playlist entry, wrapping around.
func (c *Controller) Prev() { c.do(c.prev) }

// StepForward seeks forward by the configured seek step.
func (c *Controller) StepForward() {
	c.do(func(ctx context.Context) { c.stepPosition(ctx, c.seekStep) })
}

// StepBack seeks backward by the configured seek step.
func (c *Controller) StepBack() {
	c.do(func(ctx context.Context) { c.stepPosition(ctx, -c.seekStep) })
}

// VolumeUp raises the volume by one step.
func (c *Controller) VolumeUp() { c.do(func(ctx context.Context) { c.adjustVolume(ctx, 1) }) }

// VolumeDown lowers the volume by one step.
func (c *Controller) VolumeDown() { c.do(func(ctx context.Context) { c.adjustVolume(ctx, -1) }) }

// Reload re-reads the tunable settings (volume step, poll interval,
// seek step) and reprograms the position poll, so settings changes
// apply without restarting the process.
func (c *Controller) Reload() { c.do(c.reload) }

func (c *Controller) startup(ctx context.Context) {
	c.listener.VolumeChanged(c.volume.Level())
	c.listener.VolumeIconChanged(c.volume.Level() == 0)

	folder, err := c.store.GetString(ctx, settings.KeyPathToMusic)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to read configured folder")
		c.listener.LabelChanged(labelFolderError)
		return
	}
	if folder == "" {
		c.listener.LabelChanged(labelNoFolder)
		c.listener.EnabledChanged(false)
		return
	}
	c.openFolder(ctx, folder)
}

func (c *Controller) openFolder(ctx context.Context, folder string) {
	pl, err := playlist.Rebuild(folder)
	if err != nil && !errors.Is(err, playlist.ErrEmptyPlaylist) {
		c.logger.Error().Err(err).Str("folder", folder).Msg("Failed to rebuild playlist")
		c.listener.LabelChanged(labelFolderError)
		c.listener.EnabledChanged(false)
		return
	}

	c.playlist = pl
	c.watchFolder(folder)

	if pl.Len() == 0 {
		c.logger.Info().Str("folder", folder).Msg("Folder has no playable files")
		if c.state != StateIdle {
			if stopErr := c.engine.Stop(); stopErr != nil {
				c.logger.Warn().Err(stopErr).Msg("Engine stop failed")
			}
			c.state = StateIdle
			c.target = ""
		}
		c.listener.LabelChanged(labelNoFiles)
		c.listener.EnabledChanged(false)
		return
	}

	c.listener.EnabledChanged(true)
	if err := c.loadTrack(ctx, 0); err != nil {
		c.logger.Error().Err(err).Msg("Failed to switch track")
	}
}

// loadTrack switches the session to the playlist entry at index. The
// snapshot (folder, index, count) is persisted in one transaction before
// the engine is touched: a rejected write leaves both the store and the
// cursor on the previous track.
func (c *Controller) loadTrack(ctx context.Context, index int) error {
	if c.playlist == nil || c.playlist.Len() == 0 {
		c.state = StateIdle
		return nil
	}

	prev := c.playlist.Index()
	c.playlist.SetIndex(index)
	track, _ := c.playlist.Current()

	err := c.store.SetMany(ctx, map[string]any{
		settings.KeyPathToMusic: c.playlist.Folder,
		settings.KeyCurrentSong: c.playlist.Index(),
		settings.KeyCountMusics: c.playlist.Len(),
	})
	if err != nil {
		c.playlist.SetIndex(prev)
		return fmt.Errorf("failed to persist track switch: %w", err)
	}

	if c.target != "" {
		if err := c.engine.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("Engine stop failed")
		}
	}

	c.target = track.Path(c.playlist.Folder)
	c.state = StateLoading
	c.engineStopped = false
	c.position = 0
	c.duration = 0
	c.listener.PositionRangeChanged(0, 0)
	c.listener.PositionChanged(0)

	c.logger.Info().
		Str("track", track.File).
		Int("index", c.playlist.Index()).
		Msg("Loading track")

	if err := c.engine.Load(c.target); err != nil {
		c.fault(err)
		return nil
	}
	if err := c.engine.Play(); err != nil {
		c.fault(err)
		return nil
	}
	c.listener.PlayStateIconChanged(true)
	return nil
}

func (c *Controller) playPause(ctx context.Context) {
	switch c.state {
	case StatePlaying:
		if err := c.engine.Pause(); err != nil {
			c.fault(err)
			return
		}
		c.state = StatePaused
		c.listener.PlayStateIconChanged(false)
	case StatePaused:
		if err := c.engine.Play(); err != nil {
			c.fault(err)
			return
		}
		c.state = StatePlaying
		c.listener.PlayStateIconChanged(true)
	}
}

func (c *Controller) next(ctx context.Context) {
	if c.playlist == nil || c.playlist.Len() == 0 {
		return
	}
	if err := c.loadTrack(ctx, c.playlist.NextIndex()); err != nil {
		c.logger.Error().Err(err).Msg("Failed to switch track")
	}
}

func (c *Controller) prev(ctx context.Context) {
	if c.playlist == nil || c.playlist.Len() == 0 {
		return
	}
	if err := c.loadTrack(ctx, c.playlist.PrevIndex()); err != nil {
		c.logger.Error().Err(err).Msg("Failed to switch track")
	}
}

// handleEvent reconciles one engine event with the session. Events for
// a track that is no longer the controller's target are discarded.
func (c *Controller) handleEvent(ctx context.Context, ev engine.Event) {
	if ev.Track != "" && ev.Track != c.target {
		c.logger.Debug().Str("track", ev.Track).Msg("Discarding stale engine event")
		return
	}

	switch ev.Kind {
	case engine.EventPosition:
		c.position = ev.Position
		c.listener.PositionChanged(ev.Position)
	case engine.EventDuration:
		c.duration = ev.Duration
		c.listener.PositionRangeChanged(0, ev.Duration)
	case engine.EventState:
		c.engineStopped = ev.State == engine.StateStopped
	case engine.EventStatus:
		switch ev.Status {
		case engine.StatusLoaded:
			if c.state == StateLoading {
				c.state = StatePlaying
				c.listener.PlayStateIconChanged(true)
			}
			c.announceTrack()
		case engine.StatusEndOfMedia:
			c.endOfMedia(ctx)
		case engine.StatusInvalidMedia:
			c.fault(errors.New("engine reported invalid media"))
		}
	}
}

// endOfMedia advances to the next track, wrapping around. The advance
// requires the engine to have reported a stopped transport state for
// the same track; a duplicate end-of-media status without it is ignored.
func (c *Controller) endOfMedia(ctx context.Context) {
	if !c.engineStopped {
		c.logger.Debug().Msg("Ignoring end-of-media without stopped state")
		return
	}
	if c.state != StatePlaying && c.state != StatePaused && c.state != StateLoading {
		return
	}
	c.state = StateEnded
	c.engineStopped = false
	c.logger.Debug().Str("track", c.target).Msg("End of media")
	c.next(ctx)
}

// announceTrack forwards the current track's display name to the
// presentation boundary, or a no-metadata indicator when the engine has
// none. Read-only with respect to the state machine.
func (c *Controller) announceTrack() {
	if c.playlist == nil {
		c.listener.LabelChanged(labelNoMetadata)
		return
	}
	track, ok := c.playlist.Current()
	if ok && c.engine.MetadataAvailable() {
		c.listener.LabelChanged(track.DisplayName())
		return
	}
	c.listener.LabelChanged(labelNoMetadata)
}

// syncPosition is the fixed-interval position poll. It republishes the
// engine position for display regardless of whether an event-driven
// update arrived in the same interval.
func (c *Controller) syncPosition() {
	if c.state == StateIdle || c.state == StateError {
		return
	}
	pos := c.engine.Position()
	c.position = pos
	c.listener.PositionChanged(pos)
}

// stepPosition performs the debounced relative seek: read position,
// pause if playing, seek to the clamped target, restore the prior
// transport state. Runs on the control goroutine, so two step commands
// can never interleave their read-modify-write.
func (c *Controller) stepPosition(ctx context.Context, delta time.Duration) {
	if !c.state.IsActive() {
		return
	}
	wasPlaying := c.state == StatePlaying

	pos := c.engine.Position()
	if wasPlaying {
		if err := c.engine.Pause(); err != nil {
			c.fault(err)
			return
		}
	}

	target := clampDuration(pos+delta, 0, c.duration)
	if err := c.engine.Seek(target); err != nil {
		c.fault(err)
		return
	}
	c.position = target
	c.listener.PositionChanged(target)

	if wasPlaying {
		if err := c.engine.Play(); err != nil {
			c.fault(err)
			return
		}
	}
}

func (c *Controller) adjustVolume(ctx context.Context, dir int) {
	if _, err := c.volume.Adjust(ctx, dir); err != nil {
		c.logger.Error().Err(err).Msg("Failed to adjust volume")
	}
}

func (c *Controller) reload(ctx context.Context) {
	step, err := c.store.GetInt(ctx, settings.KeyStepVolume)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to reload settings")
		return
	}
	pollInterval, err := c.store.GetDuration(ctx, settings.KeyUpdateInterval)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to reload settings")
		return
	}
	seekStep, err := c.store.GetDuration(ctx, settings.KeyMoveInterval)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to reload settings")
		return
	}

	c.volume.step = step
	c.seekStep = seekStep
	c.pollInterval = pollInterval
	if c.ticker != nil {
		c.ticker.Reset(pollInterval)
	}
	c.logger.Info().
		Dur("poll_interval", pollInterval).
		Dur("seek_step", seekStep).
		Int("volume_step", step).
		Msg("Reloaded tunables")
}

// fault records an engine fault. The state machine stays responsive: a
// fresh track load recovers.
func (c *Controller) fault(err error) {
	c.state = StateError
	c.logger.Error().Err(err).Msg("Engine fault")
	c.listener.LabelChanged(labelPlaybackError)
	c.listener.PlayStateIconChanged(false)
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
