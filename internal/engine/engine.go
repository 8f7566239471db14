// Package engine defines the asynchronous media engine contract the
// player core drives, plus the beep-backed production implementation.
package engine

import "time"

// PlayState represents the engine's transport state.
type PlayState int

const (
	StateStopped PlayState = iota
	StatePlaying
	StatePaused
)

// String returns a human-readable representation of the PlayState.
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Status is the media status reported alongside transport state.
type Status int

const (
	StatusUnknown Status = iota
	StatusLoading
	// StatusLoaded means the media is decoded and ready; metadata may
	// be queried once this status has been observed.
	StatusLoaded
	// StatusEndOfMedia means the track drained naturally. A manual stop
	// never produces it.
	StatusEndOfMedia
	StatusInvalidMedia
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusEndOfMedia:
		return "end-of-media"
	case StatusInvalidMedia:
		return "invalid-media"
	default:
		return "unknown"
	}
}

// EventKind discriminates engine events.
type EventKind int

const (
	EventPosition EventKind = iota
	EventDuration
	EventStatus
	EventState
)

// Event is one asynchronous notification from the engine. Track carries
// the path of the load the event belongs to, so consumers can discard
// events for tracks that are no longer current.
type Event struct {
	Track    string
	Kind     EventKind
	Position time.Duration
	Duration time.Duration
	Status   Status
	State    PlayState
}

// Engine is the media engine port. Commands are fire-and-forget from the
// caller's perspective: completion is observed through the event stream,
// not the return value. Returned errors cover immediate command
// rejection (bad path, undecodable media), never playback outcomes.
type Engine interface {
	// Load decodes the file and prepares it for playback, replacing any
	// current session. It emits duration and loaded-status events.
	Load(path string) error
	Play() error
	Pause() error
	// Stop tears down the current session synchronously. No end-of-media
	// event is emitted for a stopped track.
	Stop() error
	Seek(pos time.Duration) error

	Position() time.Duration
	Duration() time.Duration
	MetadataAvailable() bool

	// SetVolume applies a 0-100 volume level.
	SetVolume(percent int) error

	// Events returns the engine's event stream. Events are emitted on
	// engine-owned goroutines; consumers marshal them onto their own
	// control loop.
	Events() <-chan Event

	Close() error
}
