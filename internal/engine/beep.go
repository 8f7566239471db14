package engine

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"
)

// speakerRate is the fixed output sample rate; tracks with a different
// native rate are resampled on the fly.
const speakerRate beep.SampleRate = 44100

const positionTick = 250 * time.Millisecond

var (
	speakerOnce sync.Once
	speakerErr  error
)

// beepTrack bundles the decode resources of a single loaded track.
type beepTrack struct {
	path     string
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
}

func (t *beepTrack) close() {
	if t.streamer != nil {
		t.streamer.Close()
	}
	if t.file != nil {
		t.file.Close()
	}
}

// Beep plays local mp3/wav files through the system speaker.
//
// Lock order is mu before speaker.Lock; the end-of-track callback runs
// on the speaker goroutine and therefore only touches the event channel.
type Beep struct {
	mu      sync.Mutex
	current *beepTrack
	percent int

	events chan Event
	done   chan struct{}
	logger zerolog.Logger
}

// NewBeep initializes the speaker (once per process) and starts the
// position notifier.
func NewBeep(logger zerolog.Logger) (*Beep, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(100*time.Millisecond))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("failed to init speaker: %w", speakerErr)
	}

	b := &Beep{
		percent: 100,
		events:  make(chan Event, 32),
		done:    make(chan struct{}),
		logger:  logger.With().Str("component", "engine").Logger(),
	}
	go b.notifyPositions()
	return b, nil
}

// Events returns the engine event stream.
func (b *Beep) Events() <-chan Event {
	return b.events
}

// Load decodes path and queues it on the speaker, paused. It emits the
// track duration and a loaded status on success, an invalid-media status
// on decode failure.
func (b *Beep) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open track: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("unsupported media type: %s", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		b.emit(Event{Track: path, Kind: EventStatus, Status: StatusInvalidMedia})
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	var rendered beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		rendered = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	ctrl := &beep.Ctrl{Streamer: rendered, Paused: true}
	vol := &effects.Volume{Streamer: ctrl, Base: 2}
	applyVolume(vol, b.percent)

	b.mu.Lock()
	speaker.Clear()
	if b.current != nil {
		b.current.close()
	}
	b.current = &beepTrack{
		path:     path,
		file:     f,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		volume:   vol,
	}
	speaker.Play(beep.Seq(vol, beep.Callback(func() {
		b.emit(Event{Track: path, Kind: EventState, State: StateStopped})
		b.emit(Event{Track: path, Kind: EventStatus, Status: StatusEndOfMedia})
	})))
	b.mu.Unlock()

	b.emit(Event{Track: path, Kind: EventDuration, Duration: format.SampleRate.D(streamer.Len())})
	b.emit(Event{Track: path, Kind: EventStatus, Status: StatusLoaded})

	b.logger.Debug().Str("track", filepath.Base(path)).Msg("Track loaded")
	return nil
}

// Play resumes (or starts) the current track.
func (b *Beep) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return fmt.Errorf("no track loaded")
	}
	speaker.Lock()
	b.current.ctrl.Paused = false
	speaker.Unlock()

	b.emit(Event{Track: b.current.path, Kind: EventState, State: StatePlaying})
	return nil
}

// Pause pauses the current track.
func (b *Beep) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return fmt.Errorf("no track loaded")
	}
	speaker.Lock()
	b.current.ctrl.Paused = true
	speaker.Unlock()

	b.emit(Event{Track: b.current.path, Kind: EventState, State: StatePaused})
	return nil
}

// Stop tears down the current session. It returns once the speaker no
// longer references the track's streamer.
func (b *Beep) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return nil
	}
	path := b.current.path
	speaker.Clear()
	b.current.close()
	b.current = nil

	b.emit(Event{Track: path, Kind: EventState, State: StateStopped})
	return nil
}

// Seek moves the current track to an absolute position. Callers clamp;
// the engine only rejects a seek with no loaded track.
func (b *Beep) Seek(pos time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return fmt.Errorf("no track loaded")
	}
	speaker.Lock()
	err := b.current.streamer.Seek(b.current.format.SampleRate.N(pos))
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// Position returns the current playback position, 0 with no track.
func (b *Beep) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return 0
	}
	speaker.Lock()
	n := b.current.streamer.Position()
	speaker.Unlock()
	return b.current.format.SampleRate.D(n)
}

// Duration returns the current track's total duration, 0 with no track.
func (b *Beep) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return 0
	}
	return b.current.format.SampleRate.D(b.current.streamer.Len())
}

// MetadataAvailable reports whether a decoded track is present.
func (b *Beep) MetadataAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// SetVolume applies a 0-100 level to the current and all future tracks.
func (b *Beep) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("volume %d out of range", percent)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.percent = percent
	if b.current != nil {
		speaker.Lock()
		applyVolume(b.current.volume, percent)
		speaker.Unlock()
	}
	return nil
}

// Close stops playback and the position notifier.
func (b *Beep) Close() error {
	close(b.done)
	return b.Stop()
}

// notifyPositions emits position events for the current track while it
// is not paused, independent of caller polling.
func (b *Beep) notifyPositions() {
	ticker := time.NewTicker(positionTick)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		t := b.current
		if t == nil {
			b.mu.Unlock()
			continue
		}
		speaker.Lock()
		paused := t.ctrl.Paused
		n := t.streamer.Position()
		speaker.Unlock()
		path := t.path
		pos := t.format.SampleRate.D(n)
		b.mu.Unlock()

		if !paused {
			b.emit(Event{Track: path, Kind: EventPosition, Position: pos})
		}
	}
}

// emit never blocks: the speaker callback runs on the audio goroutine
// and must not stall on a slow consumer.
func (b *Beep) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Debug().Int("kind", int(ev.Kind)).Msg("Dropped engine event")
	}
}

func applyVolume(vol *effects.Volume, percent int) {
	if percent == 0 {
		vol.Silent = true
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(float64(percent) / 100)
}
