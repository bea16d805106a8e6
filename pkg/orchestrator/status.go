package orchestrator

import (
	"slices"
	"time"

	"github.com/teslashibe/nova-guide/pkg/notify"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

// StatusSink receives status snapshots. PublishStatus is called from the
// control loop and must not block.
type StatusSink interface {
	PublishStatus(Status)
}

// Status is a point-in-time view of the control loop.
type Status struct {
	State     State        `json:"state"`
	Blocked   bool         `json:"blocked"`
	Alerts    []string     `json:"alerts,omitempty"`
	Task      string       `json:"task,omitempty"`
	Listener  string       `json:"listener"`
	Vision    string       `json:"vision"`
	Audio     string       `json:"audio"`
	Speech    notify.Stats `json:"speech"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (s Status) sameAs(other Status) bool {
	return s.State == other.State &&
		s.Blocked == other.Blocked &&
		slices.Equal(s.Alerts, other.Alerts) &&
		s.Task == other.Task &&
		s.Listener == other.Listener &&
		s.Vision == other.Vision &&
		s.Audio == other.Audio &&
		s.Speech == other.Speech
}

// Snapshot returns the latest published status. Safe from any goroutine.
func (o *Orchestrator) Snapshot() Status {
	if s := o.status.Load(); s != nil {
		return *s
	}
	return Status{}
}

func (o *Orchestrator) publishStatus() {
	s := Status{
		State:     o.state,
		Blocked:   o.debounce.Blocked(),
		Alerts:    o.alerts(),
		Task:      o.taskString(),
		Listener:  o.listenerStatus(),
		Vision:    o.visionStatus(),
		Audio:     o.audioStatus(),
		Speech:    o.speechStats(),
		UpdatedAt: o.now(),
	}
	if prev := o.status.Load(); prev != nil && prev.sameAs(s) {
		return
	}
	o.status.Store(&s)
	if o.sink != nil {
		o.sink.PublishStatus(s)
	}
}

func (o *Orchestrator) listenerStatus() string {
	switch {
	case o.listenerDisabled:
		return "disabled"
	case o.listener == nil:
		return "idle"
	default:
		return o.listener.State().String()
	}
}

func (o *Orchestrator) visionStatus() string {
	if o.visionLost {
		return "disabled"
	}
	return handleStatus(o.vision)
}

func (o *Orchestrator) speechStats() notify.Stats {
	if s, ok := o.notifier.(interface{ Stats() notify.Stats }); ok {
		return s.Stats()
	}
	return notify.Stats{}
}

func (o *Orchestrator) audioStatus() string {
	if h, ok := o.notifier.(interface{ Handle() *worker.Handle }); ok {
		return handleStatus(h.Handle())
	}
	return "unknown"
}

func handleStatus(h *worker.Handle) string {
	if h == nil {
		return "disabled"
	}
	return h.State().String()
}
