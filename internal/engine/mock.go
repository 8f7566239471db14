package engine

import (
	"sync"
	"time"
)

// Call records one command issued to the mock engine.
type Call struct {
	Name   string
	Path   string
	Pos    time.Duration
	Volume int
}

// Mock is a scripted in-memory Engine for tests. Commands are recorded;
// tests push events explicitly via Emit.
type Mock struct {
	mu       sync.Mutex
	calls    []Call
	events   chan Event
	loaded   string
	position time.Duration
	duration time.Duration
	metadata bool

	LoadErr error
	PlayErr error
}

// NewMock creates a mock engine with metadata available by default.
func NewMock() *Mock {
	return &Mock{
		events:   make(chan Event, 64),
		metadata: true,
	}
}

func (m *Mock) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns a copy of the recorded command log.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallNames returns just the command names, in order.
func (m *Mock) CallNames() []string {
	calls := m.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

// ResetCalls clears the command log.
func (m *Mock) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Emit pushes an event onto the mock's event stream.
func (m *Mock) Emit(ev Event) {
	m.events <- ev
}

// SetPosition scripts the position reported by Position.
func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

// SetDuration scripts the duration reported by Duration.
func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// SetMetadataAvailable scripts the MetadataAvailable answer.
func (m *Mock) SetMetadataAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata = ok
}

// Loaded returns the path of the last successful Load.
func (m *Mock) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Mock) Load(path string) error {
	m.record(Call{Name: "load", Path: path})
	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.mu.Lock()
	m.loaded = path
	m.mu.Unlock()
	return nil
}

func (m *Mock) Play() error {
	m.record(Call{Name: "play"})
	return m.PlayErr
}

func (m *Mock) Pause() error {
	m.record(Call{Name: "pause"})
	return nil
}

func (m *Mock) Stop() error {
	m.record(Call{Name: "stop"})
	m.mu.Lock()
	m.loaded = ""
	m.mu.Unlock()
	return nil
}

func (m *Mock) Seek(pos time.Duration) error {
	m.record(Call{Name: "seek", Pos: pos})
	m.mu.Lock()
	m.position = pos
	m.mu.Unlock()
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) MetadataAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata
}

func (m *Mock) SetVolume(percent int) error {
	m.record(Call{Name: "volume", Volume: percent})
	return nil
}

func (m *Mock) Events() <-chan Event {
	return m.events
}

func (m *Mock) Close() error {
	return nil
}
