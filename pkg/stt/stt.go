// Package stt recognizes a spoken command after the wake phrase.
//
// Listen holds the microphone for the whole call and returns the first
// non-empty utterance. There is no caller timeout: the call ends when
// something is recognized, the audio stream fails, or ctx is cancelled.
// An empty result is not an error; callers treat it as "nothing heard".
package stt

import (
	"context"
	"time"
)

// Interpreter turns speech into text.
type Interpreter interface {
	// Listen records until an utterance is recognized. phrases restricts
	// recognition to a fixed vocabulary; nil allows free-form speech.
	Listen(ctx context.Context, phrases []string) (string, error)
	Name() string
}

// Config holds recognizer settings.
type Config struct {
	// Enabled turns command recognition on.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the Vosk server websocket.
	Endpoint string `mapstructure:"endpoint"`

	// SampleRate sent to the server. Must match the microphone.
	SampleRate int `mapstructure:"sample_rate"`

	// DialTimeout bounds connecting to the server.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Endpoint:    "ws://127.0.0.1:2700",
		SampleRate:  16000,
		DialTimeout: 3 * time.Second,
	}
}

// Disabled recognizes nothing.
type Disabled struct{}

func (Disabled) Listen(ctx context.Context, phrases []string) (string, error) { return "", nil }
func (Disabled) Name() string                                                { return "disabled" }
