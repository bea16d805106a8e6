package audioio

import (
	"context"
	"errors"
	"io"
)

// ErrBusy is returned by Open while another capture holds the microphone.
var ErrBusy = errors.New("audioio: microphone busy")

// AudioChunk represents a chunk of mono PCM16 audio.
type AudioChunk struct {
	// Samples contains PCM16 audio samples.
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int
}

// Bytes returns the chunk as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// FromBytes populates the chunk from little-endian PCM16 bytes.
func (c *AudioChunk) FromBytes(data []byte, sampleRate int) {
	c.SampleRate = sampleRate
	c.Samples = make([]int16, len(data)/2)
	for i := range c.Samples {
		c.Samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
}

// Duration returns the duration of this chunk in seconds.
func (c *AudioChunk) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Capture is one exclusive recording session.
type Capture interface {
	// Read returns the next chunk, blocking until one is available.
	// Returns io.EOF once the capture has ended.
	Read(ctx context.Context) (AudioChunk, error)

	// Close ends the session and releases the microphone.
	// It is safe to call Close multiple times.
	io.Closer
}

// Microphone hands out exclusive capture sessions.
type Microphone interface {
	// Open starts a capture. It fails with ErrBusy while a previous
	// capture is still open.
	Open(ctx context.Context) (Capture, error)

	// Config returns the capture configuration.
	Config() Config

	// Name returns the backend name.
	Name() string
}
