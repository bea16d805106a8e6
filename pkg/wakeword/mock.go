package wakeword

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/nova-guide/pkg/audioio"
)

// Mock is a scripted Engine for tests. Fire makes the current (or next)
// session report a detection.
type Mock struct {
	// Mic, when set, is held for the duration of each session.
	Mic audioio.Microphone

	// Err, when set, ends every session immediately with this error.
	Err error

	fire chan struct{}

	mu        sync.Mutex
	sessions  int
	active    int
	maxActive int
}

// NewMock returns an idle mock engine.
func NewMock() *Mock {
	return &Mock{fire: make(chan struct{}, 1)}
}

// Fire queues one detection. It blocks while a previous one is pending.
func (m *Mock) Fire() { m.fire <- struct{}{} }

// Listen implements Engine.
func (m *Mock) Listen(ctx context.Context, stop <-chan struct{}) (bool, error) {
	m.enter()
	defer m.exit()

	if m.Err != nil {
		return false, m.Err
	}
	if m.Mic != nil {
		capture, err := m.Mic.Open(ctx)
		if err != nil {
			return false, fmt.Errorf("wakeword: open microphone: %w", err)
		}
		defer capture.Close()
	}

	select {
	case <-m.fire:
		return true, nil
	case <-stop:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Name implements Engine.
func (m *Mock) Name() string { return "mock" }

func (m *Mock) enter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions++
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
}

func (m *Mock) exit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
}

// Sessions returns how many sessions have started.
func (m *Mock) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions
}

// Active returns how many sessions are running now.
func (m *Mock) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// MaxActive returns the highest number of concurrent sessions seen.
func (m *Mock) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

var _ Engine = (*Mock)(nil)
