package audioio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/nova-guide/internal/log"
)

// Opener starts a raw capture without any exclusivity checks.
type Opener func(ctx context.Context) (Capture, error)

// Exclusive guards a capture backend so at most one session is live.
type Exclusive struct {
	cfg    Config
	name   string
	open   Opener
	logger *slog.Logger

	mu    sync.Mutex
	held  bool
	owner string
}

// NewExclusive wraps open with single-holder semantics.
func NewExclusive(cfg Config, name string, open Opener, logger *slog.Logger) *Exclusive {
	return &Exclusive{
		cfg:    cfg,
		name:   name,
		open:   open,
		logger: log.OrDefault(logger, "audioio"),
	}
}

// Open implements Microphone.
func (e *Exclusive) Open(ctx context.Context) (Capture, error) {
	e.mu.Lock()
	if e.held {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.held = true
	e.mu.Unlock()

	c, err := e.open(ctx)
	if err != nil {
		e.release()
		return nil, err
	}
	e.logger.Debug("microphone acquired", "backend", e.name)
	return &heldCapture{Capture: c, release: e.release}, nil
}

// Held reports whether a capture currently owns the microphone.
func (e *Exclusive) Held() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held
}

func (e *Exclusive) release() {
	e.mu.Lock()
	e.held = false
	e.mu.Unlock()
	e.logger.Debug("microphone released", "backend", e.name)
}

// Config implements Microphone.
func (e *Exclusive) Config() Config { return e.cfg }

// Name implements Microphone.
func (e *Exclusive) Name() string { return e.name }

type heldCapture struct {
	Capture
	once    sync.Once
	release func()
}

func (h *heldCapture) Close() error {
	var err error
	h.once.Do(func() {
		err = h.Capture.Close()
		h.release()
	})
	return err
}

var _ Microphone = (*Exclusive)(nil)
