package player

import "time"

// Listener is the presentation boundary. The controller calls it from
// its control goroutine; implementations marshal onto their own UI
// thread as needed.
type Listener interface {
	// LabelChanged carries title, metadata, and error text.
	LabelChanged(text string)
	// PositionRangeChanged announces the valid progress range. A zero
	// max means the duration is unknown and progress is indeterminate.
	PositionRangeChanged(min, max time.Duration)
	PositionChanged(pos time.Duration)
	// PlayStateIconChanged is true while playing, false while paused.
	PlayStateIconChanged(playing bool)
	// VolumeIconChanged is true when the volume is muted (zero).
	VolumeIconChanged(muted bool)
	VolumeChanged(percent int)
	// EnabledChanged gates the transport controls.
	EnabledChanged(enabled bool)
}

// NopListener discards all notifications.
type NopListener struct{}

func (NopListener) LabelChanged(string)                          {}
func (NopListener) PositionRangeChanged(time.Duration, time.Duration) {}
func (NopListener) PositionChanged(time.Duration)                {}
func (NopListener) PlayStateIconChanged(bool)                    {}
func (NopListener) VolumeIconChanged(bool)                       {}
func (NopListener) VolumeChanged(int)                            {}
func (NopListener) EnabledChanged(bool)                          {}
