package orchestrator

import (
	"context"
	"time"

	"github.com/teslashibe/nova-guide/pkg/command"
	"github.com/teslashibe/nova-guide/pkg/motion"
	"github.com/teslashibe/nova-guide/pkg/obstacle"
	"github.com/teslashibe/nova-guide/pkg/wakeword"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

// step runs one loop iteration. wait bounds the wake-event wait; the
// command cycle, when a wake event arrives, is not bounded.
func (o *Orchestrator) step(ctx context.Context, wait time.Duration) {
	o.superviseVision()
	o.pollObstacle()
	o.finishTurn()
	o.superviseListener()

	if o.awaitWake(ctx, wait) {
		o.handleWake(ctx)
	}
	o.publishStatus()
}

// pollObstacle samples the monitor and acts on debounced edges. Blocking
// takes effect on the first blocked sample; clearing waits for the
// threshold.
func (o *Orchestrator) pollObstacle() {
	raw := o.obstacles.Blocked()
	switch o.debounce.Observe(raw, o.now()) {
	case obstacle.BecameBlocked:
		o.onBlocked()
	case obstacle.BecameClear:
		o.onClear()
	}
}

func (o *Orchestrator) onBlocked() {
	o.logger.Info("obstacle detected", "alerts", o.alerts().String(), "task", o.taskString())
	o.turnUntil = time.Time{}
	o.stopMotors()
	o.say(PhraseObstacle)
	o.settle()
}

func (o *Orchestrator) onClear() {
	o.logger.Info("path clear", "task", o.taskString())
	o.say(PhraseClear)
	if o.task != nil {
		o.say(PhraseResume)
		o.drive(*o.task)
	}
	o.settle()
}

// superviseVision notices a vision worker that exited on its own. Its last
// alerts are stale, so detection is switched off, the task is dropped and
// the motors stop. The robot then moves only on new commands.
func (o *Orchestrator) superviseVision() {
	if o.vision == nil || o.visionLost {
		return
	}
	select {
	case <-o.vision.Done():
	default:
		return
	}

	o.visionLost = true
	o.obstacles = obstacle.Never{}
	o.task = nil
	o.turnUntil = time.Time{}
	o.stopMotors()
	o.logger.Error("vision worker exited, obstacle detection disabled", "error", o.vision.Err())
	o.say(PhraseBlind)
	o.settle()
}

// finishTurn ends an expired one-shot turn, returning to the task if
// there is one.
func (o *Orchestrator) finishTurn() {
	if o.turnUntil.IsZero() || o.now().Before(o.turnUntil) {
		return
	}
	o.turnUntil = time.Time{}
	switch {
	case o.debounce.Blocked():
	case o.task != nil:
		o.drive(*o.task)
	default:
		o.stopMotors()
	}
	o.settle()
}

// awaitWake consumes the wake signal, waiting up to wait for it. It
// returns early when the listener exits so a dead listener is noticed
// on the next iteration rather than after a full tick.
func (o *Orchestrator) awaitWake(ctx context.Context, wait time.Duration) bool {
	if o.signal.Clear() {
		return true
	}
	if wait <= 0 {
		return false
	}

	var listenerDone <-chan struct{}
	if o.listener != nil {
		listenerDone = o.listener.Done()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-o.signal.C():
		return true
	case <-listenerDone:
		// The listener raises the signal before it exits.
		return o.signal.Clear()
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}

// handleWake runs the wake, command and task cycle.
func (o *Orchestrator) handleWake(ctx context.Context) {
	o.setState(HandlingCommand)
	o.retireListener()

	o.say(PhraseWake)
	rooms := o.roomNames()
	o.logger.Info("wake word detected, listening for command; obstacle checks resume after it returns")

	started := o.now()
	text, err := o.interpreter.Listen(ctx, command.Vocabulary(rooms))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.logger.Warn("command recognition failed", "interpreter", o.interpreter.Name(), "error", err)
		text = ""
	}
	o.logger.Info("command heard", "text", text, "elapsed", o.now().Sub(started))

	o.pollObstacle()
	d := command.Parse(text, o.debounce.Blocked(), rooms)
	o.apply(d)

	o.listenerFailures = 0
	o.spawnListener()
}

// apply executes a parsed decision against task memory and the motors.
func (o *Orchestrator) apply(d command.Decision) {
	switch d.Kind {
	case command.None:
		o.logger.Debug("no command heard")
	case command.Stop:
		o.task = nil
		o.turnUntil = time.Time{}
		o.stopMotors()
	case command.Navigate:
		t := *d.Task
		t.Speed = o.cfg.DefaultSpeed
		o.task = &t
		o.turnUntil = time.Time{}
		o.drive(t)
	case command.Turn:
		t := *d.Task
		t.Speed = o.cfg.TurnSpeed
		o.drive(t)
		o.turnUntil = o.now().Add(o.cfg.TurnDuration)
	case command.Refused:
		o.logger.Info("movement refused, path blocked", "alerts", o.alerts().String())
	}
	o.logger.Info("command applied", "kind", d.Kind, "task", o.taskString())
	o.say(d.Reply)
	o.settle()
}

func (o *Orchestrator) drive(t command.Task) {
	if err := motion.Apply(o.motion, t.Action, t.Speed); err != nil {
		o.logger.Error("motion command failed", "action", t.Action, "speed", t.Speed, "error", err)
	}
}

func (o *Orchestrator) stopMotors() {
	if err := o.motion.Stop(); err != nil {
		o.logger.Error("motion stop failed", "error", err)
	}
}

// spawnListener starts a fresh single-shot listener. The previous one must
// already be joined.
func (o *Orchestrator) spawnListener() {
	if o.listenerDisabled || o.listener != nil {
		return
	}
	h := wakeword.NewListener(o.engine, o.signal, o.logger)
	if err := h.Start(o.workerCtx); err != nil {
		o.logger.Error("wake-word listener failed to start", "error", err)
		return
	}
	o.listener = h
}

// retireListener stops and joins the current listener, releasing the
// microphone.
func (o *Orchestrator) retireListener() worker.Outcome {
	h := o.listener
	o.listener = nil
	out := worker.StopAndJoin(h, o.cfg.ListenerTimeout, o.cfg.KillGrace)
	if out == worker.Abandoned {
		o.logger.Warn("wake-word listener did not release the microphone")
	}
	return out
}

// superviseListener notices a listener that exited without a detection,
// restarts it after a delay and gives up after repeated failures.
func (o *Orchestrator) superviseListener() {
	if o.listenerDisabled {
		return
	}
	if o.listener == nil {
		if !o.now().Before(o.restartAt) {
			o.spawnListener()
		}
		return
	}
	if o.listener.Alive() || o.signal.Pending() {
		return
	}

	err := o.listener.Err()
	o.listener = nil
	o.listenerFailures++

	if o.cfg.MaxListenerFailures > 0 && o.listenerFailures >= o.cfg.MaxListenerFailures {
		o.listenerDisabled = true
		o.logger.Error("wake-word disabled after repeated listener failures",
			"failures", o.listenerFailures, "error", err)
		return
	}
	o.restartAt = o.now().Add(o.cfg.ListenerRestartDelay)
	o.logger.Warn("wake-word listener died, restarting",
		"failures", o.listenerFailures, "delay", o.cfg.ListenerRestartDelay, "error", err)
}

func (o *Orchestrator) alerts() obstacle.AlertSet {
	if l, ok := o.obstacles.(interface{ Latest() obstacle.AlertSet }); ok {
		return l.Latest()
	}
	return nil
}

func (o *Orchestrator) taskString() string {
	if o.task == nil {
		return ""
	}
	return o.task.String()
}
