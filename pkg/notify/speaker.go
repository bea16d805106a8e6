package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/nova-guide/internal/log"
)

// Speaker renders text as audible speech. Speak blocks until playback
// finishes or ctx is done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Name() string
}

// SpeechConfig selects the TTS command.
type SpeechConfig struct {
	// Command is the TTS binary, e.g. "espeak-ng". Empty selects log-only.
	Command string `mapstructure:"command"`

	// Args precede the text argument.
	Args []string `mapstructure:"args"`
}

// DefaultSpeechConfig returns production defaults.
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{Command: "espeak-ng"}
}

// CommandSpeaker runs an external TTS program per request, passing the
// text as the last argument.
type CommandSpeaker struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewCommandSpeaker checks that the command exists.
func NewCommandSpeaker(cfg SpeechConfig, logger *slog.Logger) (*CommandSpeaker, error) {
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("notify: tts command %q: %w", cfg.Command, err)
	}
	return &CommandSpeaker{
		command: path,
		args:    append([]string(nil), cfg.Args...),
		logger:  log.OrDefault(logger, "notify.tts"),
	}, nil
}

// Speak implements Speaker.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), s.args...), text)
	cmd := exec.CommandContext(ctx, s.command, args...)
	start := time.Now()
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify: %s: %w: %s", s.command, err, strings.TrimSpace(string(out)))
	}
	s.logger.Debug("spoke", "chars", len(text), "duration", time.Since(start))
	return nil
}

// Name implements Speaker.
func (s *CommandSpeaker) Name() string { return "command" }

// LogSpeaker writes speech to the log. Used when no TTS program is
// installed.
type LogSpeaker struct {
	logger *slog.Logger
}

// NewLogSpeaker returns a log-only speaker.
func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	return &LogSpeaker{logger: log.OrDefault(logger, "notify.tts")}
}

// Speak implements Speaker.
func (s *LogSpeaker) Speak(ctx context.Context, text string) error {
	s.logger.Info("🔊 " + text)
	return nil
}

// Name implements Speaker.
func (s *LogSpeaker) Name() string { return "log" }

// NewSpeaker returns a CommandSpeaker, falling back to LogSpeaker when the
// command is empty or not installed.
func NewSpeaker(cfg SpeechConfig, logger *slog.Logger) Speaker {
	logger = log.OrDefault(logger, "notify")
	if cfg.Command == "" {
		return NewLogSpeaker(logger)
	}
	s, err := NewCommandSpeaker(cfg, logger)
	if err != nil {
		logger.Warn("tts unavailable, speech goes to the log", "error", err)
		return NewLogSpeaker(logger)
	}
	return s
}

// RecordingSpeaker implements Speaker for tests.
type RecordingSpeaker struct {
	// Hang, when set, makes Speak ignore cancellation and block until the
	// channel is closed.
	Hang chan struct{}

	// Err, when set, is returned by every Speak after recording.
	Err error

	mu     sync.Mutex
	spoken []string
	notify chan struct{}
}

// NewRecordingSpeaker returns an empty recorder.
func NewRecordingSpeaker() *RecordingSpeaker {
	return &RecordingSpeaker{notify: make(chan struct{}, 1)}
}

// Speak implements Speaker.
func (r *RecordingSpeaker) Speak(ctx context.Context, text string) error {
	if r.Hang != nil {
		<-r.Hang
	}
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return r.Err
}

// Name implements Speaker.
func (r *RecordingSpeaker) Name() string { return "recording" }

// Spoken returns everything spoken so far, in order.
func (r *RecordingSpeaker) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.spoken))
	copy(out, r.spoken)
	return out
}

// WaitFor blocks until text has been spoken or timeout elapses.
func (r *RecordingSpeaker) WaitFor(text string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		for _, s := range r.Spoken() {
			if s == text {
				return true
			}
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return false
		}
	}
}

var (
	_ Speaker = (*CommandSpeaker)(nil)
	_ Speaker = (*LogSpeaker)(nil)
	_ Speaker = (*RecordingSpeaker)(nil)
)
