// Package notify speaks feedback to the user without blocking the caller.
//
// Say appends to a FIFO that a single consumer worker drains through a
// Speaker, one request at a time. Shutdown enqueues the sentinel: the
// consumer finishes everything queued before it and then exits.
package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

// Notifier is the audio feedback worker.
type Notifier struct {
	queue   *Queue
	speaker Speaker
	handle  *worker.Handle
	logger  *slog.Logger

	spoken  atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// New creates a notifier speaking through speaker.
func New(speaker Speaker, logger *slog.Logger) *Notifier {
	n := &Notifier{
		queue:   NewQueue(),
		speaker: speaker,
		logger:  log.OrDefault(logger, "notify"),
	}
	n.handle = worker.New("notify", n.consume, worker.WithLogger(logger))
	return n
}

// Start launches the consumer.
func (n *Notifier) Start(ctx context.Context) error {
	if err := n.handle.Start(ctx); err != nil {
		return err
	}
	n.logger.Info("audio notifier started", "speaker", n.speaker.Name())
	return nil
}

// Say enqueues text. It never blocks. Text said after Shutdown is dropped.
func (n *Notifier) Say(text string) {
	if text == "" {
		return
	}
	if err := n.queue.Enqueue(text); err != nil {
		n.dropped.Add(1)
		n.logger.Warn("dropping speech after shutdown", "text", text)
		return
	}
	n.logger.Debug("queueing for TTS", "text", text)
}

// Shutdown enqueues the sentinel and waits for the consumer, terminating
// it if it does not finish within timeout.
func (n *Notifier) Shutdown(timeout, grace time.Duration) worker.Outcome {
	n.queue.Close()
	return worker.JoinOrTerminate(n.handle, timeout, grace)
}

// Handle exposes the consumer worker for liveness checks.
func (n *Notifier) Handle() *worker.Handle { return n.handle }

// Pending returns the number of queued requests.
func (n *Notifier) Pending() int { return n.queue.Len() }

// Stats is a snapshot of notifier counters.
type Stats struct {
	Spoken  int64 `json:"spoken"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
	Pending int   `json:"pending"`
}

// Stats returns a snapshot of the counters.
func (n *Notifier) Stats() Stats {
	return Stats{
		Spoken:  n.spoken.Load(),
		Failed:  n.failed.Load(),
		Dropped: n.dropped.Load(),
		Pending: n.queue.Len(),
	}
}

func (n *Notifier) consume(ctx context.Context, stop <-chan struct{}) error {
	for {
		text, ok, err := n.queue.Next(ctx, stop)
		if err != nil {
			return err
		}
		if !ok {
			n.logger.Info("audio notifier received shutdown sentinel")
			return nil
		}

		if err := n.speaker.Speak(ctx, text); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n.failed.Add(1)
			n.logger.Warn("speech failed", "text", text, "error", err)
			continue
		}
		n.spoken.Add(1)
	}
}
