package orchestrator

import (
	"fmt"
	"time"

	"github.com/teslashibe/nova-guide/pkg/worker"
)

// ShutdownReport records how each step of the shutdown sequence ended.
type ShutdownReport struct {
	Motion   error          `json:"-"`
	Listener worker.Outcome `json:"listener"`
	Vision   worker.Outcome `json:"vision"`
	Audio    worker.Outcome `json:"audio"`
	Elapsed  time.Duration  `json:"elapsed"`
}

// Shutdown stops the motors and every worker: the listener, then vision,
// then the notifier after it drains. Each step is bounded and runs even
// when an earlier one failed or panicked. Later calls return the first
// report.
func (o *Orchestrator) Shutdown() ShutdownReport {
	o.shutdownOnce.Do(func() {
		o.report = o.shutdown()
	})
	return o.report
}

func (o *Orchestrator) shutdown() ShutdownReport {
	start := time.Now()
	o.setState(ShuttingDown)
	o.logger.Info("shutdown sequence started")

	// Overwritten by each step that completes.
	r := ShutdownReport{
		Listener: worker.Abandoned,
		Vision:   worker.Abandoned,
		Audio:    worker.Abandoned,
	}

	o.bestEffort("motion", func() {
		r.Motion = o.motion.Cleanup()
	})
	o.bestEffort("listener", func() {
		r.Listener = o.retireListener()
	})
	o.bestEffort("vision", func() {
		r.Vision = worker.StopAndJoin(o.vision, o.cfg.VisionTimeout, o.cfg.KillGrace)
	})
	o.bestEffort("audio", func() {
		r.Audio = o.notifier.Shutdown(o.cfg.AudioTimeout, o.cfg.KillGrace)
	})

	if o.cancelWorkers != nil {
		o.cancelWorkers()
	}
	r.Elapsed = time.Since(start)
	o.publishStatus()

	o.logger.Info("shutdown complete",
		"listener", r.Listener,
		"vision", r.Vision,
		"audio", r.Audio,
		"motion_error", r.Motion,
		"elapsed", r.Elapsed,
	)
	return r
}

// bestEffort runs one shutdown step, converting a panic into a log line.
func (o *Orchestrator) bestEffort(step string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("shutdown step panicked", "step", step, "panic", fmt.Sprint(p))
		}
	}()
	fn()
}
