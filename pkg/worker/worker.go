// Package worker manages the lifecycle of concurrent units.
//
// A Handle wraps one execution of a Func in its own goroutine and tracks it
// through NotStarted -> Running -> StopRequested -> Stopped. Stopping is
// cooperative first: RequestStop closes the stop channel the Func is
// expected to watch. Terminate is the fallback: it cancels the Func's context
// and runs an optional terminator hook (close a device, kill a subprocess).
// A Func that ignores both is abandoned after a grace period; the caller is
// never blocked on it indefinitely.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/nova-guide/internal/log"
)

// Sentinel errors.
var (
	// ErrAlreadyStarted is returned when Start is called twice.
	// Handles are single-use; spawn a new one instead.
	ErrAlreadyStarted = errors.New("worker: already started")

	// ErrPanicked wraps a panic recovered from a worker body.
	ErrPanicked = errors.New("worker: panicked")
)

// State is the lifecycle state of a worker.
type State int32

const (
	NotStarted State = iota
	Running
	StopRequested
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case StopRequested:
		return "stop_requested"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Func is the body of a worker. It must return once stop is closed or ctx
// is done. A non-nil error marks an abnormal exit.
type Func func(ctx context.Context, stop <-chan struct{}) error

// Option configures a Handle.
type Option func(*Handle)

// WithTerminator sets a hook run once by Terminate, after the context is
// cancelled. Use it to unblock I/O the Func cannot select on.
func WithTerminator(fn func()) Option {
	return func(h *Handle) {
		h.terminator = fn
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handle) {
		h.logger = l
	}
}

// Handle is the lifecycle wrapper for one worker execution.
type Handle struct {
	id         string
	name       string
	fn         Func
	terminator func()
	logger     *slog.Logger

	mu        sync.Mutex
	state     State
	err       error
	forced    bool
	abandoned bool
	cancel    context.CancelFunc
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	doneOnce  sync.Once
	termOnce  sync.Once
}

// New creates a handle for fn. The worker does not run until Start.
func New(name string, fn Func, opts ...Option) *Handle {
	h := &Handle{
		id:     uuid.New().String(),
		name:   name,
		fn:     fn,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = log.OrDefault(h.logger, "worker").With("worker", name, "worker_id", h.id[:8])
	return h
}

// ID returns the unique instance id.
func (h *Handle) ID() string { return h.id }

// Name returns the worker name.
func (h *Handle) Name() string { return h.name }

// Start launches the worker goroutine.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != NotStarted {
		return fmt.Errorf("%s: %w", h.name, ErrAlreadyStarted)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.state = Running

	go h.run(runCtx)

	h.logger.Debug("worker started")
	return nil
}

func (h *Handle) run(ctx context.Context) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}

		h.mu.Lock()
		h.err = err
		h.state = Stopped
		cancel := h.cancel
		h.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		h.closeDone()

		if err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn("worker exited with error", "error", err)
		} else {
			h.logger.Debug("worker exited")
		}
	}()

	err = h.fn(ctx, h.stopCh)
}

func (h *Handle) closeDone() {
	h.doneOnce.Do(func() { close(h.done) })
}

// RequestStop asks the worker to finish. It is safe to call repeatedly.
// A handle that was never started moves straight to Stopped.
func (h *Handle) RequestStop() {
	h.mu.Lock()
	switch h.state {
	case NotStarted:
		h.state = Stopped
		h.mu.Unlock()
		h.closeDone()
		return
	case Running:
		h.state = StopRequested
	}
	h.mu.Unlock()

	h.stopOnce.Do(func() { close(h.stopCh) })
}

// Join waits up to timeout for the worker to exit and reports whether it did.
func (h *Handle) Join(timeout time.Duration) bool {
	select {
	case <-h.done:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	}
}

// Terminate force-stops the worker: the context is cancelled and the
// terminator hook, if any, runs once.
func (h *Handle) Terminate() {
	h.mu.Lock()
	if h.state == NotStarted {
		h.mu.Unlock()
		h.RequestStop()
		return
	}
	h.forced = true
	cancel := h.cancel
	h.mu.Unlock()

	h.stopOnce.Do(func() { close(h.stopCh) })
	if cancel != nil {
		cancel()
	}
	h.termOnce.Do(func() {
		if h.terminator != nil {
			h.terminator()
		}
	})
}

// abandon marks a worker that ignored Terminate as stopped. Its goroutine
// may still be running; Done stays open until it really exits.
func (h *Handle) abandon() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Stopped {
		h.state = Stopped
		h.abandoned = true
	}
}

// Done is closed when the worker goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stopping is closed once a stop was requested.
func (h *Handle) Stopping() <-chan struct{} { return h.stopCh }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Alive reports whether the worker goroutine is still running.
func (h *Handle) Alive() bool {
	h.mu.Lock()
	started := h.state != NotStarted
	h.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Err returns the exit error. Only meaningful after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Forced reports whether Terminate was used.
func (h *Handle) Forced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forced
}

// Abandoned reports whether the worker was given up on after Terminate.
func (h *Handle) Abandoned() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.abandoned
}

