package media

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Element.
//
// Listeners removed through their unlisten func stay reachable through
// EmitStale, which simulates a notification that was already in flight from
// a resource that has since been replaced.
type Mock struct {
	mu        sync.Mutex
	position  time.Duration
	duration  time.Duration
	hasDur    bool
	seekable  bool
	playErr   error
	playGate  chan struct{}
	listeners map[int]Listener
	removed   []Listener
	nextID    int
	loads     int
	pending   []pendingEvent

	loadCalls  []string
	playCalls  int
	pauseCalls int
	seekCalls  []time.Duration
}

// NewMock creates a seekable mock element with an unknown duration.
func NewMock() *Mock {
	return &Mock{
		seekable:  true,
		listeners: make(map[int]Listener),
	}
}

func (m *Mock) Load(source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, source)
	m.loads++
	m.position = 0
	return nil
}

func (m *Mock) Play(ctx context.Context) error {
	m.mu.Lock()
	m.playCalls++
	gate := m.playGate
	err := m.playErr
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *Mock) Pause() {
	m.mu.Lock()
	m.pauseCalls++
	m.mu.Unlock()
}

func (m *Mock) SetPosition(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	if !m.seekable {
		return ErrNotSeekable
	}
	m.position = pos
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration, m.hasDur
}

func (m *Mock) Listen(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if l, ok := m.listeners[id]; ok {
				m.removed = append(m.removed, l)
				delete(m.listeners, id)
			}
		})
	}
}

// Test helpers

// Emit delivers e to every registered listener.
func (m *Mock) Emit(e Event) {
	m.mu.Lock()
	ls := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.mu.Unlock()
	for _, l := range ls {
		l(e)
	}
}

type pendingEvent struct {
	load int
	e    Event
}

// Queue holds e for the source currently loaded until Flush, like an
// element whose dispatcher is busy.
func (m *Mock) Queue(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, pendingEvent{load: m.loads, e: e})
}

// Flush delivers queued events to the registered listeners in order,
// dropping those queued before the latest Load.
func (m *Mock) Flush() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	loads := m.loads
	m.mu.Unlock()
	for _, p := range pending {
		if p.load == loads {
			m.Emit(p.e)
		}
	}
}

// EmitStale delivers e to every listener that has been unregistered.
func (m *Mock) EmitStale(e Event) {
	m.mu.Lock()
	ls := append([]Listener(nil), m.removed...)
	m.mu.Unlock()
	for _, l := range ls {
		l(e)
	}
}

// ListenerCount returns the number of registered listeners.
func (m *Mock) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// SetDuration sets the value reported by Duration.
func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
	m.hasDur = true
}

// SetPositionValue sets the value reported by Position without recording a seek.
func (m *Mock) SetPositionValue(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *Mock) SetSeekable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekable = ok
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// HoldPlay makes Play block until the returned func is called.
func (m *Mock) HoldPlay() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.playGate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

// Verify Mock implements Element at compile time.
var _ Element = (*Mock)(nil)
