// Package wakeword detects the trigger phrase that arms command listening.
//
// An Engine performs one detection session. Each session is run by a
// single-shot listener worker that owns the microphone until it detects
// the phrase (raising the Signal) or is asked to stop. The control loop
// joins a finished listener before it starts the next one, so two
// sessions never contend for the microphone.
package wakeword

import (
	"context"
	"log/slog"

	"github.com/teslashibe/nova-guide/pkg/worker"
)

// Engine runs one detection session. Listen returns true once the phrase
// is heard, or false when stop is closed. Listen must release the
// microphone before returning.
type Engine interface {
	Listen(ctx context.Context, stop <-chan struct{}) (detected bool, err error)
	Name() string
}

// NewListener returns a single-shot listener worker for engine. It raises
// sig on detection and then exits. Start it with Handle.Start.
func NewListener(engine Engine, sig *Signal, logger *slog.Logger) *worker.Handle {
	fn := func(ctx context.Context, stop <-chan struct{}) error {
		detected, err := engine.Listen(ctx, stop)
		if err != nil {
			return err
		}
		if detected {
			sig.Set()
		}
		return nil
	}
	return worker.New("wakeword."+engine.Name(), fn, worker.WithLogger(logger))
}

// Disabled never detects anything. It is used when the engine could not
// be initialized; Listen idles until stopped.
type Disabled struct{}

func (Disabled) Listen(ctx context.Context, stop <-chan struct{}) (bool, error) {
	select {
	case <-stop:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (Disabled) Name() string { return "disabled" }
