package wakeword

// Signal is the edge-triggered wake event shared between a listener
// instance and the control loop. Set never blocks; a second Set before
// the first is consumed is absorbed. Receiving from C consumes the event.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns a cleared signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Set raises the signal.
func (s *Signal) Set() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C returns the channel to receive the event on.
func (s *Signal) C() <-chan struct{} { return s.ch }

// Pending reports whether an event is waiting, without consuming it.
// Only meaningful to the single consumer.
func (s *Signal) Pending() bool { return len(s.ch) > 0 }

// Clear consumes a pending event, reporting whether one was pending.
func (s *Signal) Clear() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
