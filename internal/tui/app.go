package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Transport is the subset of playback controls driven by key bindings.
type Transport interface {
	PlayPause()
	Next()
	Prev()
	StepForward()
	StepBack()
	VolumeUp()
	VolumeDown()
}

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
	Theme       string        // Color theme
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
		Theme:       "dark",
	}
}

// palette is the set of tview color tags used by a theme.
type palette struct {
	text  string // primary text
	dim   string // secondary text and labels
	play  string // playing indicator
	pause string // paused indicator
	fill  string // progress bar filled cells
	empty string // progress bar empty cells
	mute  string // muted volume icon
}

// paletteFor maps a theme name to its palette. Unknown names get the
// dark palette.
func paletteFor(theme string) palette {
	if theme == "light" {
		return palette{
			text:  "black",
			dim:   "darkslategray",
			play:  "darkgreen",
			pause: "darkorange",
			fill:  "darkgreen",
			empty: "darkslategray",
			mute:  "darkred",
		}
	}
	return palette{
		text:  "white",
		dim:   "gray",
		play:  "green",
		pause: "yellow",
		fill:  "green",
		empty: "gray",
		mute:  "red",
	}
}

// App is the TUI application for displaying playback state. It
// implements the player listener interface; notifications only record
// state under the mutex, and a single refresh ticker drives all
// redraws to prevent queued redraw buildup.
type App struct {
	app      *tview.Application
	track    *tview.TextView
	progress *tview.TextView
	volume   *tview.TextView
	status   *tview.TextView

	// Configuration
	config Config
	pal    palette

	// Transport for playback controls
	transport Transport

	// Mutex protects shared state written by the controller goroutine
	// and read by the refresh ticker.
	mu sync.Mutex

	// Current state (guarded by mu)
	label    string
	position time.Duration
	duration time.Duration
	playing  bool
	muted    bool
	percent  int
	enabled  bool

	// Last-rendered content for change detection
	lastTrack    string
	lastProgress string
	lastVolume   string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	// Context cancel function
	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New() *App {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
		pal:    paletteFor(cfg.Theme),
	}
	a.setupUI()
	return a
}

// SetTransport sets the transport for playback controls
func (a *App) SetTransport(t Transport) {
	a.transport = t
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	// Track panel
	a.track = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.track.SetBorder(true).
		SetTitle(" Track ").
		SetTitleAlign(tview.AlignLeft)

	// Progress bar
	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	// Volume panel
	a.volume = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.volume.SetBorder(true).
		SetTitle(" Volume ").
		SetTitleAlign(tview.AlignLeft)

	// Status bar
	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(fmt.Sprintf("[%s]q:quit  space:play/pause  n:next  p:prev  ←/→:seek  -/+:volume[-]", a.pal.dim))

	// Create layout
	// Top row: track panel (takes most space)
	// Middle row: progress bar
	// Bottom row: volume panel
	// Footer: status bar
	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.track, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(a.volume, 3, 1, false).
		AddItem(a.status, 1, 1, false)

	// Handle keyboard input
	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input. Transport keys are dropped
// while the controls are disabled (no folder or an empty folder).
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	if event.Rune() == 'q' || event.Rune() == 'Q' {
		a.app.Stop()
		return nil
	}

	if a.transport == nil {
		return event
	}

	a.mu.Lock()
	enabled := a.enabled
	a.mu.Unlock()
	if !enabled {
		return event
	}

	switch event.Key() {
	case tcell.KeyRight:
		a.transport.StepForward()
		return nil
	case tcell.KeyLeft:
		a.transport.StepBack()
		return nil
	}

	switch event.Rune() {
	case ' ':
		a.transport.PlayPause()
		return nil
	case 'n', 'N':
		a.transport.Next()
		return nil
	case 'p', 'P':
		a.transport.Prev()
		return nil
	case '+', '=':
		a.transport.VolumeUp()
		return nil
	case '-':
		a.transport.VolumeDown()
		return nil
	}
	return event
}

// Run starts the TUI and the refresh ticker. It blocks until the user
// quits or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleRefresh(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleRefresh drives all redraws from a single ticker.
func (a *App) handleRefresh(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateTrack()
		a.updateProgress()
		a.updateVolume()
	})
}

// updateTrack updates the track panel
func (a *App) updateTrack() {
	var sb strings.Builder
	sb.WriteString("\n")
	if a.label == "" {
		sb.WriteString(fmt.Sprintf("[%s]No track[-]", a.pal.dim))
	} else {
		sb.WriteString(fmt.Sprintf("[%s::b]%s[-:-:-]", a.pal.text, tview.Escape(a.label)))
	}

	// Play state indicator
	if a.enabled {
		stateIcon := fmt.Sprintf("[%s]⏸[-]", a.pal.pause)
		if a.playing {
			stateIcon = fmt.Sprintf("[%s]▶[-]", a.pal.play)
		}
		sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
	}

	text := sb.String()
	if text != a.lastTrack {
		a.lastTrack = text
		a.track.SetText(text)
	}
}

// updateProgress updates the progress bar
func (a *App) updateProgress() {
	var text string

	if a.enabled {
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		// Only update cached width when GetInnerRect returns a positive
		// value, avoiding flicker from transient zero-width during layout.
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		progressBar := buildProgressBar(a.position, a.duration, a.lastBarWidth, a.pal)
		posStr := formatDuration(a.position)
		durStr := formatDuration(a.duration)
		text = fmt.Sprintf("%s %s %s", posStr, progressBar, durStr)
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

// updateVolume updates the volume panel
func (a *App) updateVolume() {
	icon := fmt.Sprintf("[%s]\U0001F50A[-]", a.pal.play)
	if a.muted {
		icon = fmt.Sprintf("[%s]\U0001F507[-]", a.pal.mute)
	}
	text := fmt.Sprintf("%s %3d%%", icon, a.percent)

	if text != a.lastVolume {
		a.lastVolume = text
		a.volume.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// LabelChanged records the track or status text for the next redraw.
func (a *App) LabelChanged(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.label = text
}

// PositionRangeChanged records the valid progress range.
func (a *App) PositionRangeChanged(min, max time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.position < min {
		a.position = min
	}
	a.duration = max
}

// PositionChanged records the playback position.
func (a *App) PositionChanged(pos time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position = pos
}

// PlayStateIconChanged records the play/pause indicator state.
func (a *App) PlayStateIconChanged(playing bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = playing
}

// VolumeIconChanged records the mute indicator state.
func (a *App) VolumeIconChanged(muted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muted = muted
}

// VolumeChanged records the volume percentage.
func (a *App) VolumeChanged(percent int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.percent = percent
}

// EnabledChanged gates the transport key bindings.
func (a *App) EnabledChanged(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int, pal palette) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", width)
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	bar := "[" + pal.fill + "]" + strings.Repeat("█", filled) + "[-]" +
		"[" + pal.empty + "]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
