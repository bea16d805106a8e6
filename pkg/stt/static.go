package stt

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/nova-guide/pkg/audioio"
)

// Static is a scripted Interpreter for tests. Each Listen returns the next
// scripted reply; once the script is exhausted it returns "".
type Static struct {
	// Mic, when set, is held for the duration of each call.
	Mic audioio.Microphone

	// Gate, when set, is received from before replying. Tests use it to
	// hold the interpreter mid-command.
	Gate chan struct{}

	mu      sync.Mutex
	replies []string
	phrases [][]string
	calls   int
}

// NewStatic returns an interpreter that replies with texts in order.
func NewStatic(texts ...string) *Static {
	return &Static{replies: texts}
}

// Push appends a reply to the script.
func (s *Static) Push(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, text)
}

// Listen implements Interpreter.
func (s *Static) Listen(ctx context.Context, phrases []string) (string, error) {
	if s.Mic != nil {
		capture, err := s.Mic.Open(ctx)
		if err != nil {
			return "", fmt.Errorf("stt: open microphone: %w", err)
		}
		defer capture.Close()
	}
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.phrases = append(s.phrases, phrases)
	if len(s.replies) == 0 {
		return "", nil
	}
	text := s.replies[0]
	s.replies = s.replies[1:]
	return text, nil
}

// Name implements Interpreter.
func (s *Static) Name() string { return "static" }

// Calls returns how many times Listen completed.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastPhrases returns the vocabulary passed to the latest call.
func (s *Static) LastPhrases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.phrases) == 0 {
		return nil
	}
	return s.phrases[len(s.phrases)-1]
}

var _ Interpreter = (*Static)(nil)
