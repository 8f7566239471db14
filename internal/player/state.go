package player

// State is the playback controller's session state.
type State int

const (
	// StateIdle means no track is loaded.
	StateIdle State = iota
	// StateLoading means a track was handed to the engine and the
	// controller is waiting for its loaded status.
	StateLoading
	StatePlaying
	StatePaused
	// StateEnded is the terminal per-track state; it immediately
	// triggers the auto-advance to the next track.
	StateEnded
	// StateError means the engine reported a fault. A fresh track load
	// recovers.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsActive reports whether a track is currently playing or paused.
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}
