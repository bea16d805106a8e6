// Package audioio provides exclusive microphone capture.
//
// The microphone is a single shared device. Wake-word listening and command
// listening both need it, and only one of them may hold it at a time.
// Microphone.Open enforces that: a second Open while a capture is live
// fails with ErrBusy instead of silently sharing the device.
//
// Backends:
//   - arecord (Linux/Robot) - captures raw PCM16 from ALSA via arecord
//   - Mock - CI/Testing without hardware
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the capture backend type.
type Backend string

const (
	// BackendArecord captures through the arecord utility.
	BackendArecord Backend = "arecord"
	// BackendMock replays scripted chunks.
	BackendMock Backend = "mock"
)

// Config holds capture configuration.
type Config struct {
	// Backend selects the capture implementation.
	// Default: "arecord"
	Backend Backend `mapstructure:"backend" json:"backend"`

	// Device is the ALSA device, e.g. "default" or "plughw:1,0".
	Device string `mapstructure:"device" json:"device"`

	// SampleRate in Hz. Recognizers expect 16000.
	SampleRate int `mapstructure:"sample_rate" json:"sample_rate"`

	// FrameDuration is the size of each chunk handed to consumers.
	// Default: 32ms (512 samples at 16kHz, one wake-word frame)
	FrameDuration time.Duration `mapstructure:"frame" json:"frame"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendArecord,
		Device:        "default",
		SampleRate:    16000,
		FrameDuration: 32 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame must be positive, got %v", c.FrameDuration)
	}
	switch c.Backend {
	case BackendArecord, BackendMock:
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}
	return nil
}

// FrameSamples returns the number of mono samples per chunk.
func (c *Config) FrameSamples() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// FrameBytes returns the size of a chunk in bytes (PCM16 mono).
func (c *Config) FrameBytes() int {
	return c.FrameSamples() * 2
}
