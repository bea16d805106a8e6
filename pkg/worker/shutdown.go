package worker

import "time"

// Outcome describes how a worker ended during shutdown.
type Outcome int

const (
	// Joined means the worker exited cooperatively within the timeout.
	Joined Outcome = iota
	// Terminated means the worker needed Terminate but then exited.
	Terminated
	// Abandoned means the worker ignored Terminate and was given up on.
	Abandoned
	// NeverStarted means there was nothing to stop.
	NeverStarted
)

func (o Outcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case Terminated:
		return "terminated"
	case Abandoned:
		return "abandoned"
	case NeverStarted:
		return "never_started"
	default:
		return "unknown"
	}
}

// JoinOrTerminate waits up to timeout for h to exit. If it does not, h is
// force-terminated and given grace to exit before being abandoned. The
// total wait is bounded by timeout+grace.
func JoinOrTerminate(h *Handle, timeout, grace time.Duration) Outcome {
	if h == nil {
		return NeverStarted
	}
	if h.State() == NotStarted {
		h.RequestStop()
		return NeverStarted
	}
	if h.Join(timeout) {
		return Joined
	}

	h.logger.Warn("worker did not stop in time, terminating",
		"timeout", timeout,
	)
	h.Terminate()
	if h.Join(grace) {
		return Terminated
	}

	h.abandon()
	h.logger.Warn("worker ignored termination, abandoning",
		"grace", grace,
	)
	return Abandoned
}

// StopAndJoin requests a cooperative stop, then behaves like JoinOrTerminate.
func StopAndJoin(h *Handle, timeout, grace time.Duration) Outcome {
	if h == nil {
		return NeverStarted
	}
	if h.State() == NotStarted {
		h.RequestStop()
		return NeverStarted
	}
	h.RequestStop()
	return JoinOrTerminate(h, timeout, grace)
}
