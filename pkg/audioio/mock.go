package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// MockMicrophone replays scripted chunks for tests. After the script is
// exhausted a capture either ends with io.EOF or, with Hold, blocks until
// its context is done or it is closed.
type MockMicrophone struct {
	*Exclusive

	mu     sync.Mutex
	script []AudioChunk
	hold   bool
	opens  atomic.Int64
}

// MockOption configures a MockMicrophone.
type MockOption func(*MockMicrophone)

// WithChunks sets the chunks every capture replays.
func WithChunks(chunks ...AudioChunk) MockOption {
	return func(m *MockMicrophone) { m.script = chunks }
}

// WithHold keeps captures open after the script ends.
func WithHold() MockOption {
	return func(m *MockMicrophone) { m.hold = true }
}

// NewMockMicrophone creates a scripted microphone.
func NewMockMicrophone(cfg Config, logger *slog.Logger, opts ...MockOption) *MockMicrophone {
	m := &MockMicrophone{}
	for _, opt := range opts {
		opt(m)
	}
	m.Exclusive = NewExclusive(cfg, string(BackendMock), m.open, logger)
	return m
}

// Opens returns how many captures have been started.
func (m *MockMicrophone) Opens() int64 { return m.opens.Load() }

func (m *MockMicrophone) open(ctx context.Context) (Capture, error) {
	m.opens.Add(1)
	m.mu.Lock()
	script := make([]AudioChunk, len(m.script))
	copy(script, m.script)
	hold := m.hold
	m.mu.Unlock()
	return &mockCapture{script: script, hold: hold, closed: make(chan struct{})}, nil
}

type mockCapture struct {
	script []AudioChunk
	hold   bool
	pos    int

	once   sync.Once
	closed chan struct{}
}

func (c *mockCapture) Read(ctx context.Context) (AudioChunk, error) {
	select {
	case <-c.closed:
		return AudioChunk{}, io.EOF
	default:
	}
	if c.pos < len(c.script) {
		chunk := c.script[c.pos]
		c.pos++
		return chunk, nil
	}
	if !c.hold {
		return AudioChunk{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case <-c.closed:
		return AudioChunk{}, io.EOF
	}
}

func (c *mockCapture) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Silence returns a chunk of n zero samples.
func Silence(n, sampleRate int) AudioChunk {
	return AudioChunk{Samples: make([]int16, n), SampleRate: sampleRate}
}
