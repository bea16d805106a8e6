package obstacle

import "time"

// DefaultClearThreshold is how long the raw signal must stay clear before
// a pause ends.
const DefaultClearThreshold = 2 * time.Second

// Transition is the edge produced by one debouncer observation.
type Transition int

const (
	NoChange Transition = iota
	BecameBlocked
	BecameClear
)

func (t Transition) String() string {
	switch t {
	case BecameBlocked:
		return "blocked"
	case BecameClear:
		return "clear"
	default:
		return "none"
	}
}

// State is the debounced obstacle state.
type State struct {
	IsBlocked bool      `json:"is_blocked"`
	LastSeen  time.Time `json:"last_seen"`
}

// Debouncer applies the asymmetric policy: a blocked sample takes effect
// immediately, clearing needs the raw signal to stay clear for the whole
// threshold. Samples must be fed in time order.
type Debouncer struct {
	threshold time.Duration
	state     State
}

// NewDebouncer returns a clear debouncer. A non-positive threshold uses
// DefaultClearThreshold.
func NewDebouncer(threshold time.Duration) *Debouncer {
	if threshold <= 0 {
		threshold = DefaultClearThreshold
	}
	return &Debouncer{threshold: threshold}
}

// Observe feeds one raw sample taken at now.
func (d *Debouncer) Observe(rawBlocked bool, now time.Time) Transition {
	if rawBlocked {
		d.state.LastSeen = now
		if !d.state.IsBlocked {
			d.state.IsBlocked = true
			return BecameBlocked
		}
		return NoChange
	}

	if d.state.IsBlocked && now.Sub(d.state.LastSeen) >= d.threshold {
		d.state.IsBlocked = false
		return BecameClear
	}
	return NoChange
}

// Blocked reports the debounced state.
func (d *Debouncer) Blocked() bool { return d.state.IsBlocked }

// State returns a copy of the debounced state.
func (d *Debouncer) State() State { return d.state }

// Threshold returns the clear duration threshold.
func (d *Debouncer) Threshold() time.Duration { return d.threshold }
