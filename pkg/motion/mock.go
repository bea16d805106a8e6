package motion

import (
	"fmt"
	"sync"
)

// Call records one Controller invocation.
type Call struct {
	Method string
	Speed  int
}

func (c Call) String() string {
	if c.Method == "Stop" || c.Method == "Cleanup" {
		return c.Method
	}
	return fmt.Sprintf("%s(%d)", c.Method, c.Speed)
}

// Recorder implements Controller for tests and records every call.
type Recorder struct {
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls []Call
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(method string, speed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, Speed: speed})
	return r.Err
}

func (r *Recorder) MoveForward(speed int) error  { return r.record("MoveForward", ClampSpeed(speed)) }
func (r *Recorder) MoveBackward(speed int) error { return r.record("MoveBackward", ClampSpeed(speed)) }
func (r *Recorder) TurnLeft(speed int) error     { return r.record("TurnLeft", ClampSpeed(speed)) }
func (r *Recorder) TurnRight(speed int) error    { return r.record("TurnRight", ClampSpeed(speed)) }
func (r *Recorder) Stop() error                  { return r.record("Stop", 0) }
func (r *Recorder) Cleanup() error               { return r.record("Cleanup", 0) }

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns how many times method was called.
func (r *Recorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent call, or nil.
func (r *Recorder) LastCall() *Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	c := r.calls[len(r.calls)-1]
	return &c
}

// Reset clears recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

var _ Controller = (*Recorder)(nil)
