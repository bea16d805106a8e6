package vision

import (
	"context"
	"sync"

	"github.com/teslashibe/nova-guide/pkg/obstacle"
)

// FakeSensor replays scripted frames for tests. After the script it
// repeats the last frame, or returns Err when set.
type FakeSensor struct {
	// Hang makes Sense block forever, ignoring cancellation and Close.
	// The call is still counted by Senses.
	Hang bool
	// Err is returned once the script is exhausted.
	Err error

	mu     sync.Mutex
	frames [][]obstacle.Detection
	pos    int
	closed bool
	senses int
}

// NewFakeSensor returns a sensor that yields frames in order.
func NewFakeSensor(frames ...[]obstacle.Detection) *FakeSensor {
	return &FakeSensor{frames: frames}
}

// Sense implements Sensor.
func (f *FakeSensor) Sense(ctx context.Context) ([]obstacle.Detection, error) {
	f.mu.Lock()
	f.senses++
	hang := f.Hang
	f.mu.Unlock()
	if hang {
		select {}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos < len(f.frames) {
		frame := f.frames[f.pos]
		f.pos++
		return frame, nil
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.frames) == 0 {
		return nil, nil
	}
	return f.frames[len(f.frames)-1], nil
}

// Close implements Sensor.
func (f *FakeSensor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSensor) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Senses returns how many frames were requested.
func (f *FakeSensor) Senses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.senses
}
