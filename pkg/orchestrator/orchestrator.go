// Package orchestrator runs the robot's control loop.
//
// One goroutine owns all decision state: the debounced obstacle state, the
// current task and the wake-word listener handle. Each iteration polls the
// obstacle monitor, advances the debouncer, supervises the listener and
// then waits at most one tick for a wake event. A wake event runs the
// command cycle: the listener is joined, the interpreter takes the
// microphone, the result is parsed and applied, and a fresh listener is
// spawned. Obstacles are not sampled while the interpreter is listening.
//
// The vision and audio workers run on their own goroutines and never share
// state with the loop beyond the obstacle monitor and the notifier queue.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/command"
	"github.com/teslashibe/nova-guide/pkg/motion"
	"github.com/teslashibe/nova-guide/pkg/obstacle"
	"github.com/teslashibe/nova-guide/pkg/stt"
	"github.com/teslashibe/nova-guide/pkg/wakeword"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

// Phrases spoken by the control loop. Command replies live in package command.
const (
	PhraseStartup  = "System initiated. Say my name to give a command."
	PhraseWake     = "Yes?"
	PhraseObstacle = "Obstacle detected. Pausing task."
	PhraseClear    = "Path clear."
	PhraseResume   = "Resuming my task."
	PhraseBlind    = "Obstacle detection is offline. Stopping."
)

// ErrAlreadyRunning is returned when Start is called twice.
var ErrAlreadyRunning = errors.New("orchestrator: already running")

// State is the control loop state.
type State string

const (
	Listening       State = "listening"
	Paused          State = "paused"
	HandlingCommand State = "handling_command"
	Executing       State = "executing"
	ShuttingDown    State = "shutting_down"
)

// Notifier is the asynchronous audio feedback worker.
type Notifier interface {
	Start(ctx context.Context) error
	// Say enqueues text and must never block.
	Say(text string)
	// Shutdown enqueues the sentinel and waits for the queue to drain.
	Shutdown(timeout, grace time.Duration) worker.Outcome
}

// RoomLister supplies learned room names for the command vocabulary.
type RoomLister interface {
	Names() []string
}

// Config tunes the loop and the shutdown sequence.
type Config struct {
	// Tick bounds the wait for a wake event, and so the obstacle
	// reaction latency while idle.
	Tick time.Duration
	// ClearThreshold is how long the path must stay clear to resume.
	ClearThreshold time.Duration
	// TurnDuration is how long a one-shot turn drives.
	TurnDuration time.Duration
	// ListenerRestartDelay spaces out restarts of a failed listener.
	ListenerRestartDelay time.Duration
	// MaxListenerFailures disables wake-word after this many failures
	// in a row. Zero means never give up.
	MaxListenerFailures int
	// DefaultSpeed drives navigation tasks, TurnSpeed one-shot turns.
	DefaultSpeed int
	TurnSpeed    int

	ListenerTimeout time.Duration
	VisionTimeout   time.Duration
	AudioTimeout    time.Duration
	// KillGrace is how long a force-terminated worker gets to exit.
	KillGrace time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Tick:                 100 * time.Millisecond,
		ClearThreshold:       obstacle.DefaultClearThreshold,
		TurnDuration:         time.Second,
		ListenerRestartDelay: time.Second,
		MaxListenerFailures:  5,
		DefaultSpeed:         motion.DefaultSpeed,
		TurnSpeed:            motion.DefaultSpeed,
		ListenerTimeout:      2 * time.Second,
		VisionTimeout:        3 * time.Second,
		AudioTimeout:         2 * time.Second,
		KillGrace:            500 * time.Millisecond,
	}
}

// Deps are the collaborators the loop drives. Motion, Obstacles, WakeWord,
// Interpreter and Notifier are required.
type Deps struct {
	Motion      motion.Controller
	Obstacles   obstacle.Monitor
	WakeWord    wakeword.Engine
	Interpreter stt.Interpreter
	Notifier    Notifier

	// Vision is the vision worker, started and stopped by the
	// orchestrator. Nil when vision is disabled.
	Vision *worker.Handle
	// Rooms adds learned destinations. Optional.
	Rooms RoomLister
	// Status receives snapshots when they change. Optional.
	Status StatusSink

	Logger *slog.Logger
	// Now overrides time.Now for the debouncer and timers.
	Now func() time.Time
}

// Orchestrator is the control loop. All methods except Snapshot must be
// called from the goroutine running the loop.
type Orchestrator struct {
	cfg         Config
	motion      motion.Controller
	obstacles   obstacle.Monitor
	engine      wakeword.Engine
	interpreter stt.Interpreter
	notifier    Notifier
	vision      *worker.Handle
	rooms       RoomLister
	sink        StatusSink
	logger      *slog.Logger
	now         func() time.Time

	debounce *obstacle.Debouncer
	signal   *wakeword.Signal

	state     State
	task      *command.Task
	turnUntil time.Time

	visionLost bool

	listener         *worker.Handle
	listenerFailures int
	listenerDisabled bool
	restartAt        time.Time

	started       bool
	workerCtx     context.Context
	cancelWorkers context.CancelFunc

	status       atomic.Pointer[Status]
	shutdownOnce sync.Once
	report       ShutdownReport
}

// New validates deps and returns an orchestrator in the Listening state.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Motion == nil:
		return nil, errors.New("orchestrator: motion controller is required")
	case deps.Obstacles == nil:
		return nil, errors.New("orchestrator: obstacle monitor is required")
	case deps.WakeWord == nil:
		return nil, errors.New("orchestrator: wake-word engine is required")
	case deps.Interpreter == nil:
		return nil, errors.New("orchestrator: command interpreter is required")
	case deps.Notifier == nil:
		return nil, errors.New("orchestrator: notifier is required")
	}

	def := DefaultConfig()
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.TurnDuration <= 0 {
		cfg.TurnDuration = def.TurnDuration
	}
	cfg.DefaultSpeed = motion.ClampSpeed(cfg.DefaultSpeed)
	cfg.TurnSpeed = motion.ClampSpeed(cfg.TurnSpeed)

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	o := &Orchestrator{
		cfg:         cfg,
		motion:      deps.Motion,
		obstacles:   deps.Obstacles,
		engine:      deps.WakeWord,
		interpreter: deps.Interpreter,
		notifier:    deps.Notifier,
		vision:      deps.Vision,
		rooms:       deps.Rooms,
		sink:        deps.Status,
		logger:      log.OrDefault(deps.Logger, "orchestrator"),
		now:         now,
		debounce:    obstacle.NewDebouncer(cfg.ClearThreshold),
		signal:      wakeword.NewSignal(),
		state:       Listening,
	}
	o.publishStatus()
	return o, nil
}

// Run starts the workers, loops until ctx is done and then runs the
// shutdown sequence. It returns nil on a clean interrupt.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Start(ctx); err != nil {
		return err
	}
	o.logger.Info("control loop running", "tick", o.cfg.Tick, "clear_threshold", o.debounce.Threshold())

	for ctx.Err() == nil {
		o.step(ctx, o.cfg.Tick)
	}

	o.logger.Info("interrupt received, shutting down")
	o.Shutdown()
	return nil
}

// Start launches the notifier, the vision worker and the first listener.
// Workers get a context that outlives ctx so they can drain during
// shutdown; they are stopped explicitly by Shutdown.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.started {
		return ErrAlreadyRunning
	}
	o.started = true
	o.workerCtx, o.cancelWorkers = context.WithCancel(context.WithoutCancel(ctx))

	if err := o.notifier.Start(o.workerCtx); err != nil {
		o.cancelWorkers()
		return fmt.Errorf("orchestrator: start notifier: %w", err)
	}
	if o.vision != nil {
		if err := o.vision.Start(o.workerCtx); err != nil {
			o.logger.Warn("vision worker failed to start, continuing without obstacle detection", "error", err)
			o.vision = nil
		}
	}

	o.say(PhraseStartup)
	o.spawnListener()
	o.settle()
	o.publishStatus()
	return nil
}

// State returns the loop state.
func (o *Orchestrator) State() State { return o.state }

// Task returns a copy of the current task, or nil.
func (o *Orchestrator) Task() *command.Task {
	if o.task == nil {
		return nil
	}
	t := *o.task
	return &t
}

func (o *Orchestrator) setState(s State) {
	if o.state == s {
		return
	}
	o.logger.Debug("state change", "from", o.state, "to", s)
	o.state = s
}

// settle derives the resting state from the obstacle state and task memory.
func (o *Orchestrator) settle() {
	switch {
	case o.state == ShuttingDown:
	case o.debounce.Blocked():
		o.setState(Paused)
	case o.task != nil || !o.turnUntil.IsZero():
		o.setState(Executing)
	default:
		o.setState(Listening)
	}
}

func (o *Orchestrator) say(text string) {
	if text == "" {
		return
	}
	o.logger.Info("speaking", "text", text)
	o.notifier.Say(text)
}

func (o *Orchestrator) roomNames() []string {
	if o.rooms == nil {
		return nil
	}
	return o.rooms.Names()
}
