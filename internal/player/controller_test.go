package player

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/pmarks/tunefold/internal/engine"
	"github.com/pmarks/tunefold/internal/playlist"
	"github.com/pmarks/tunefold/internal/settings"
	"github.com/rs/zerolog"
)

// recordingListener captures presentation boundary calls for assertions.
type recordingListener struct {
	mu        sync.Mutex
	labels    []string
	positions []time.Duration
	ranges    []time.Duration // max of each range change
	playIcons []bool
	volIcons  []bool
	volumes   []int
	enabled   []bool
}

func (l *recordingListener) LabelChanged(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.labels = append(l.labels, text)
}

func (l *recordingListener) PositionRangeChanged(_, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ranges = append(l.ranges, max)
}

func (l *recordingListener) PositionChanged(pos time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = append(l.positions, pos)
}

func (l *recordingListener) PlayStateIconChanged(playing bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.playIcons = append(l.playIcons, playing)
}

func (l *recordingListener) VolumeIconChanged(muted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volIcons = append(l.volIcons, muted)
}

func (l *recordingListener) VolumeChanged(percent int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volumes = append(l.volumes, percent)
}

func (l *recordingListener) EnabledChanged(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = append(l.enabled, enabled)
}

func (l *recordingListener) countLabel(text string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, lb := range l.labels {
		if lb == text {
			n++
		}
	}
	return n
}

func (l *recordingListener) lastLabel() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.labels) == 0 {
		return ""
	}
	return l.labels[len(l.labels)-1]
}

// failingStore wraps a Store and rejects writes on demand.
type failingStore struct {
	settings.Store
	failWrites bool
}

func (f *failingStore) SetInt(ctx context.Context, key string, value int) error {
	if f.failWrites {
		return fmt.Errorf("store unavailable")
	}
	return f.Store.SetInt(ctx, key, value)
}

func (f *failingStore) SetMany(ctx context.Context, values map[string]any) error {
	if f.failWrites {
		return fmt.Errorf("store unavailable")
	}
	return f.Store.SetMany(ctx, values)
}

func newTestStore(t *testing.T) *settings.DB {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestController(t *testing.T, store settings.Store) (*Controller, *engine.Mock, *recordingListener) {
	t.Helper()
	m := engine.NewMock()
	l := &recordingListener{}
	c, err := New(m, store, l, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ResetCalls() // drop the volume restore issued during construction
	return c, m, l
}

// loadFixture points the controller at a synthetic playlist and loads
// track 0, simulating the engine acknowledging the load.
func loadFixture(t *testing.T, c *Controller, m *engine.Mock, files ...string) {
	t.Helper()
	ctx := context.Background()
	tracks := make([]playlist.Track, len(files))
	for i, f := range files {
		tracks[i] = playlist.Track{File: f}
	}
	c.playlist = playlist.New("/music", tracks)
	if err := c.loadTrack(ctx, 0); err != nil {
		t.Fatalf("loadTrack: %v", err)
	}
	c.handleEvent(ctx, engine.Event{Track: c.target, Kind: engine.EventStatus, Status: engine.StatusLoaded})
	if c.state != StatePlaying {
		t.Fatalf("state after load = %v, want playing", c.state)
	}
}

func TestStartup_NoFolderConfigured(t *testing.T) {
	c, m, l := newTestController(t, newTestStore(t))

	c.startup(context.Background())

	if c.state != StateIdle {
		t.Errorf("state = %v, want idle", c.state)
	}
	if l.lastLabel() != labelNoFolder {
		t.Errorf("label = %q, want %q", l.lastLabel(), labelNoFolder)
	}
	if len(m.Calls()) != 0 {
		t.Errorf("engine calls issued with no folder: %v", m.CallNames())
	}
}

func TestStartup_ResumesConfiguredFolder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	for _, f := range []string{"a.mp3", "b.wav"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if err := store.SetString(ctx, settings.KeyPathToMusic, dir); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	c, m, _ := newTestController(t, store)
	c.startup(ctx)

	if c.state != StateLoading {
		t.Errorf("state = %v, want loading", c.state)
	}
	if m.Loaded() == "" {
		t.Error("no track handed to the engine")
	}
	count, _ := store.GetInt(ctx, settings.KeyCountMusics)
	if count != 2 {
		t.Errorf("count_musics = %d, want 2", count)
	}
}

func TestOpenFolder_Empty(t *testing.T) {
	store := newTestStore(t)
	c, m, l := newTestController(t, store)

	dir := t.TempDir()
	c.openFolder(context.Background(), dir)

	if c.state != StateIdle {
		t.Errorf("state = %v, want idle", c.state)
	}
	if got := l.countLabel(labelNoFiles); got != 1 {
		t.Errorf("no-files label emitted %d times, want exactly 1", got)
	}
	if len(m.Calls()) != 0 {
		t.Errorf("engine calls issued for an empty folder: %v", m.CallNames())
	}
	if len(l.enabled) == 0 || l.enabled[len(l.enabled)-1] {
		t.Error("transport controls not disabled for empty folder")
	}
}

func TestLoadTrack_PersistsSnapshot(t *testing.T) {
	store := newTestStore(t)
	c, m, _ := newTestController(t, store)
	ctx := context.Background()

	loadFixture(t, c, m, "b.mp3", "a.wav", "c.mp3")

	song, _ := store.GetInt(ctx, settings.KeyCurrentSong)
	count, _ := store.GetInt(ctx, settings.KeyCountMusics)
	folder, _ := store.GetString(ctx, settings.KeyPathToMusic)
	if song != 0 || count != 3 || folder != "/music" {
		t.Errorf("snapshot = (%d, %d, %q), want (0, 3, /music)", song, count, folder)
	}
	if c.target != filepath.Join("/music", "b.mp3") {
		t.Errorf("target = %q", c.target)
	}
}

func TestNext_WrapsAndPersists(t *testing.T) {
	store := newTestStore(t)
	c, m, _ := newTestController(t, store)
	ctx := context.Background()

	loadFixture(t, c, m, "b.mp3", "a.wav", "c.mp3")

	c.next(ctx)
	c.next(ctx)
	if c.playlist.Index() != 2 {
		t.Fatalf("index = %d, want 2", c.playlist.Index())
	}

	c.next(ctx)
	if c.playlist.Index() != 0 {
		t.Errorf("index after wraparound = %d, want 0", c.playlist.Index())
	}
	song, _ := store.GetInt(ctx, settings.KeyCurrentSong)
	if song != 0 {
		t.Errorf("current_song = %d, want 0", song)
	}
}

func TestPrev_WrapsBackward(t *testing.T) {
	store := newTestStore(t)
	c, m, _ := newTestController(t, store)
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3", "c.mp3")

	c.prev(ctx)
	if c.playlist.Index() != 2 {
		t.Errorf("index after prev from 0 = %d, want 2", c.playlist.Index())
	}
	song, _ := store.GetInt(ctx, settings.KeyCurrentSong)
	if song != 2 {
		t.Errorf("current_song = %d, want 2", song)
	}
}

func TestTrackSwitch_StopsBeforeLoading(t *testing.T) {
	store := newTestStore(t)
	c, m, _ := newTestController(t, store)
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3")
	m.ResetCalls()

	c.next(ctx)

	want := []string{"stop", "load", "play"}
	if got := m.CallNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("engine calls = %v, want %v", got, want)
	}
}

func TestPlayPause_PureToggle(t *testing.T) {
	store := newTestStore(t)
	c, m, _ := newTestController(t, store)
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3")
	m.ResetCalls()

	c.playPause(ctx)
	if c.state != StatePaused {
		t.Fatalf("state = %v, want paused", c.state)
	}
	c.playPause(ctx)
	if c.state != StatePlaying {
		t.Fatalf("state = %v, want playing", c.state)
	}

	want := []string{"pause", "play"}
	if got := m.CallNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("engine calls = %v, want %v", got, want)
	}
	if c.playlist.Index() != 0 {
		t.Errorf("play/pause moved the playlist cursor to %d", c.playlist.Index())
	}
}

func TestPlayPause_NoOpWhenIdle(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))

	c.playPause(context.Background())

	if len(m.Calls()) != 0 {
		t.Errorf("engine calls while idle: %v", m.CallNames())
	}
}

func TestEndOfMedia_AutoAdvances(t *testing.T) {
	store := newTestStore(t)
	c, m, _ := newTestController(t, store)
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3")
	first := c.target

	c.handleEvent(ctx, engine.Event{Track: first, Kind: engine.EventState, State: engine.StateStopped})
	c.handleEvent(ctx, engine.Event{Track: first, Kind: engine.EventStatus, Status: engine.StatusEndOfMedia})

	if c.playlist.Index() != 1 {
		t.Errorf("index after end-of-media = %d, want 1", c.playlist.Index())
	}
	song, _ := store.GetInt(ctx, settings.KeyCurrentSong)
	if song != 1 {
		t.Errorf("current_song = %d, want 1", song)
	}
}

func TestEndOfMedia_RequiresStoppedState(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3")

	// End-of-media without the stopped transport state must not advance.
	c.handleEvent(ctx, engine.Event{Track: c.target, Kind: engine.EventStatus, Status: engine.StatusEndOfMedia})

	if c.playlist.Index() != 0 {
		t.Errorf("index = %d, want 0 (no advance)", c.playlist.Index())
	}
}

func TestEndOfMedia_DuplicateDoesNotAdvanceTwice(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3", "c.mp3")
	first := c.target

	c.handleEvent(ctx, engine.Event{Track: first, Kind: engine.EventState, State: engine.StateStopped})
	c.handleEvent(ctx, engine.Event{Track: first, Kind: engine.EventStatus, Status: engine.StatusEndOfMedia})
	// The engine repeats the terminal events for the finished track.
	c.handleEvent(ctx, engine.Event{Track: first, Kind: engine.EventState, State: engine.StateStopped})
	c.handleEvent(ctx, engine.Event{Track: first, Kind: engine.EventStatus, Status: engine.StatusEndOfMedia})

	if c.playlist.Index() != 1 {
		t.Errorf("index = %d, want 1 (single advance)", c.playlist.Index())
	}
}

func TestStaleEvents_DiscardedAfterManualSwitch(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3", "c.mp3")
	abandoned := c.target

	// User skips ahead while the first track is still loading events.
	c.next(ctx)
	if c.playlist.Index() != 1 {
		t.Fatalf("index = %d, want 1", c.playlist.Index())
	}

	// A late end-of-media for the abandoned track arrives afterwards.
	c.handleEvent(ctx, engine.Event{Track: abandoned, Kind: engine.EventState, State: engine.StateStopped})
	c.handleEvent(ctx, engine.Event{Track: abandoned, Kind: engine.EventStatus, Status: engine.StatusEndOfMedia})

	if c.playlist.Index() != 1 {
		t.Errorf("stale end-of-media advanced the playlist to %d", c.playlist.Index())
	}
}

func TestStaleEvents_LateReadyIgnored(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))
	ctx := context.Background()

	tracks := []playlist.Track{{File: "a.mp3"}, {File: "b.mp3"}}
	c.playlist = playlist.New("/music", tracks)
	if err := c.loadTrack(ctx, 0); err != nil {
		t.Fatalf("loadTrack: %v", err)
	}
	abandoned := c.target

	// Switch away while the first load is still in flight.
	c.next(ctx)
	if c.state != StateLoading {
		t.Fatalf("state = %v, want loading", c.state)
	}

	// The abandoned load completes late; it must not flip us to playing
	// on behalf of the wrong track.
	c.handleEvent(ctx, engine.Event{Track: abandoned, Kind: engine.EventStatus, Status: engine.StatusLoaded})
	if c.state != StateLoading {
		t.Errorf("state = %v after stale ready event, want loading", c.state)
	}
	_ = m
}

func TestEngineFault_RecoverableByNewLoad(t *testing.T) {
	c, m, l := newTestController(t, newTestStore(t))
	ctx := context.Background()

	m.LoadErr = fmt.Errorf("decode failure")
	tracks := []playlist.Track{{File: "a.mp3"}, {File: "b.mp3"}}
	c.playlist = playlist.New("/music", tracks)
	if err := c.loadTrack(ctx, 0); err != nil {
		t.Fatalf("loadTrack returned %v, want nil (fault absorbed)", err)
	}
	if c.state != StateError {
		t.Fatalf("state = %v, want error", c.state)
	}
	if l.lastLabel() != labelPlaybackError {
		t.Errorf("label = %q, want %q", l.lastLabel(), labelPlaybackError)
	}

	// A fresh explicit load recovers.
	m.LoadErr = nil
	c.next(ctx)
	if c.state != StateLoading {
		t.Errorf("state after recovery = %v, want loading", c.state)
	}
}

func TestInvalidMediaEvent_EntersError(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3")
	c.handleEvent(ctx, engine.Event{Track: c.target, Kind: engine.EventStatus, Status: engine.StatusInvalidMedia})

	if c.state != StateError {
		t.Errorf("state = %v, want error", c.state)
	}
}

func TestSettingsWriteFailure_KeepsPreviousSnapshot(t *testing.T) {
	store := newTestStore(t)
	fs := &failingStore{Store: store}
	c, m, _ := newTestController(t, fs)
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3", "b.mp3")
	m.ResetCalls()

	fs.failWrites = true
	err := c.loadTrack(ctx, 1)
	if err == nil {
		t.Fatal("loadTrack succeeded despite store failure")
	}

	if c.playlist.Index() != 0 {
		t.Errorf("cursor moved to %d despite failed switch", c.playlist.Index())
	}
	song, _ := store.GetInt(ctx, settings.KeyCurrentSong)
	if song != 0 {
		t.Errorf("current_song = %d, want 0 (previous snapshot intact)", song)
	}
	if len(m.Calls()) != 0 {
		t.Errorf("engine touched despite failed switch: %v", m.CallNames())
	}
}

func TestMetadataLabel(t *testing.T) {
	c, m, l := newTestController(t, newTestStore(t))
	ctx := context.Background()

	loadFixture(t, c, m, "my-favorite-song.mp3")
	if l.lastLabel() != "my-favorite-song" {
		t.Errorf("label = %q, want my-favorite-song", l.lastLabel())
	}

	m.SetMetadataAvailable(false)
	c.handleEvent(ctx, engine.Event{Track: c.target, Kind: engine.EventStatus, Status: engine.StatusLoaded})
	if l.lastLabel() != labelNoMetadata {
		t.Errorf("label = %q, want %q", l.lastLabel(), labelNoMetadata)
	}
}

func TestDurationEvent_UpdatesRange(t *testing.T) {
	c, m, l := newTestController(t, newTestStore(t))
	ctx := context.Background()

	loadFixture(t, c, m, "a.mp3")
	c.handleEvent(ctx, engine.Event{Track: c.target, Kind: engine.EventDuration, Duration: 3 * time.Minute})

	if c.duration != 3*time.Minute {
		t.Errorf("duration = %v, want 3m", c.duration)
	}
	if len(l.ranges) == 0 || l.ranges[len(l.ranges)-1] != 3*time.Minute {
		t.Error("range change not published")
	}
}

func TestStepPosition(t *testing.T) {
	tests := []struct {
		name      string
		state     State
		position  time.Duration
		duration  time.Duration
		delta     time.Duration
		wantSeek  time.Duration
		wantCalls []string
		wantState State
	}{
		{
			name:      "forward while playing",
			state:     StatePlaying,
			position:  10 * time.Second,
			duration:  3 * time.Minute,
			delta:     5 * time.Second,
			wantSeek:  15 * time.Second,
			wantCalls: []string{"pause", "seek", "play"},
			wantState: StatePlaying,
		},
		{
			name:      "backward while paused stays paused",
			state:     StatePaused,
			position:  10 * time.Second,
			duration:  3 * time.Minute,
			delta:     -5 * time.Second,
			wantSeek:  5 * time.Second,
			wantCalls: []string{"seek"},
			wantState: StatePaused,
		},
		{
			name:      "clamped at zero",
			state:     StatePlaying,
			position:  2 * time.Second,
			duration:  3 * time.Minute,
			delta:     -10 * time.Second,
			wantSeek:  0,
			wantCalls: []string{"pause", "seek", "play"},
			wantState: StatePlaying,
		},
		{
			name:      "clamped at duration",
			state:     StatePlaying,
			position:  175 * time.Second,
			duration:  180 * time.Second,
			delta:     10 * time.Second,
			wantSeek:  180 * time.Second,
			wantCalls: []string{"pause", "seek", "play"},
			wantState: StatePlaying,
		},
		{
			name:      "unknown duration clamps to zero",
			state:     StatePlaying,
			position:  2 * time.Second,
			duration:  0,
			delta:     5 * time.Second,
			wantSeek:  0,
			wantCalls: []string{"pause", "seek", "play"},
			wantState: StatePlaying,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m, _ := newTestController(t, newTestStore(t))
			ctx := context.Background()

			loadFixture(t, c, m, "a.mp3")
			c.state = tt.state
			c.duration = tt.duration
			m.SetPosition(tt.position)
			m.ResetCalls()

			c.stepPosition(ctx, tt.delta)

			if got := m.CallNames(); !reflect.DeepEqual(got, tt.wantCalls) {
				t.Errorf("engine calls = %v, want %v", got, tt.wantCalls)
			}
			for _, call := range m.Calls() {
				if call.Name == "seek" && call.Pos != tt.wantSeek {
					t.Errorf("seek position = %v, want %v", call.Pos, tt.wantSeek)
				}
			}
			if c.state != tt.wantState {
				t.Errorf("state = %v, want %v", c.state, tt.wantState)
			}
		})
	}
}

func TestStepPosition_NoOpWhenInactive(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))

	c.stepPosition(context.Background(), 5*time.Second)

	if len(m.Calls()) != 0 {
		t.Errorf("engine calls while idle: %v", m.CallNames())
	}
}

func TestSyncPosition_PublishesIndependently(t *testing.T) {
	c, m, l := newTestController(t, newTestStore(t))

	loadFixture(t, c, m, "a.mp3")
	m.SetPosition(42 * time.Second)

	before := len(l.positions)
	c.syncPosition()
	c.syncPosition()

	if len(l.positions) != before+2 {
		t.Fatalf("published %d position updates, want 2", len(l.positions)-before)
	}
	if c.position != 42*time.Second {
		t.Errorf("position = %v, want 42s", c.position)
	}
}

func TestSyncPosition_SilentWhenIdle(t *testing.T) {
	c, _, l := newTestController(t, newTestStore(t))

	c.syncPosition()

	if len(l.positions) != 0 {
		t.Error("position published while idle")
	}
}

func TestReload_AppliesTunables(t *testing.T) {
	store := newTestStore(t)
	c, _, _ := newTestController(t, store)
	ctx := context.Background()

	if err := store.SetInt(ctx, settings.KeyStepVolume, 5); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := store.SetDuration(ctx, settings.KeyMoveInterval, 2*time.Second); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	if err := store.SetDuration(ctx, settings.KeyUpdateInterval, time.Second); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}

	c.reload(ctx)

	if c.volume.step != 5 {
		t.Errorf("volume step = %d, want 5", c.volume.step)
	}
	if c.seekStep != 2*time.Second {
		t.Errorf("seek step = %v, want 2s", c.seekStep)
	}
	if c.pollInterval != time.Second {
		t.Errorf("poll interval = %v, want 1s", c.pollInterval)
	}
}

func TestRescan_KeepsSurvivingTrack(t *testing.T) {
	store := newTestStore(t)
	c, m, _ := newTestController(t, store)
	ctx := context.Background()

	dir := t.TempDir()
	for _, f := range []string{"a.mp3", "b.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	c.openFolder(ctx, dir)
	c.handleEvent(ctx, engine.Event{Track: c.target, Kind: engine.EventStatus, Status: engine.StatusLoaded})
	playing := c.target
	m.ResetCalls()

	// A new file appears; the active track must keep playing.
	if err := os.WriteFile(filepath.Join(dir, "c.mp3"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c.rescan(ctx)

	if c.target != playing {
		t.Errorf("rescan switched tracks: %q -> %q", playing, c.target)
	}
	for _, name := range m.CallNames() {
		if name == "stop" || name == "load" {
			t.Errorf("rescan issued %q despite surviving track", name)
		}
	}
	count, _ := store.GetInt(ctx, settings.KeyCountMusics)
	if count != 3 {
		t.Errorf("count_musics = %d, want 3", count)
	}
}

func TestRescan_EmptyFolderStopsPlayback(t *testing.T) {
	store := newTestStore(t)
	c, m, l := newTestController(t, store)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp3")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c.openFolder(ctx, dir)
	c.handleEvent(ctx, engine.Event{Track: c.target, Kind: engine.EventStatus, Status: engine.StatusLoaded})

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	m.ResetCalls()
	c.rescan(ctx)

	if c.state != StateIdle {
		t.Errorf("state = %v, want idle", c.state)
	}
	if got := m.CallNames(); !reflect.DeepEqual(got, []string{"stop"}) {
		t.Errorf("engine calls = %v, want [stop]", got)
	}
	if l.countLabel(labelNoFiles) != 1 {
		t.Errorf("no-files label emitted %d times, want 1", l.countLabel(labelNoFiles))
	}
}

func TestRun_ProcessesCommandsAndEvents(t *testing.T) {
	c, m, _ := newTestController(t, newTestStore(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	c.OpenFolder(t.TempDir())
	m.Emit(engine.Event{Kind: engine.EventPosition, Position: time.Second})

	// Give the loop a moment to drain before shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancellation")
	}
}
